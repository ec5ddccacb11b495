package constants

// Etapas fixas do pipeline de vendas, na ordem do funil.
// "lost" fica fora do funil; entra só como coluna terminal do kanban.
const (
	StageNew         = "new"
	StageContacted   = "contacted"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

var PipelineStages = []string{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageWon,
}

var KanbanStages = append(append([]string(nil), PipelineStages...), StageLost)

// Remetentes de mensagem.
const (
	SenderContact = "contact"
	SenderUser    = "user"
)

// Status de conversa.
const (
	ConversationResolved = "resolved"
)
