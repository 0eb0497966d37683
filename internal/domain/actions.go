package domain

import "fmt"

// ActionKind tags the variant held by a CardAction.
type ActionKind uint8

const (
	ActionUnknown ActionKind = iota
	ActionSelectCategory
	ActionStartTimer
	ActionStopTimer
	ActionSendData
	ActionAnswerQuestion
	ActionAddPenalty
)

// CardAction is the meaning of a scanned card. Only the payload field matching Kind is set.
type CardAction struct {
	Kind           ActionKind
	Category       CategoryID
	Question       QuestionNumber
	PenaltyMinutes uint8
}

func SelectCategory(c CategoryID) CardAction { return CardAction{Kind: ActionSelectCategory, Category: c} }
func StartTimer() CardAction { return CardAction{Kind: ActionStartTimer} }
func StopTimer() CardAction { return CardAction{Kind: ActionStopTimer} }
func SendData() CardAction { return CardAction{Kind: ActionSendData} }
func AnswerQuestion(q QuestionNumber) CardAction {
	return CardAction{Kind: ActionAnswerQuestion, Question: q}
}
func AddPenaltyMinutes(m uint8) CardAction { return CardAction{Kind: ActionAddPenalty, PenaltyMinutes: m} }
func UnknownAction() CardAction { return CardAction{Kind: ActionUnknown} }

func (a CardAction) String() string {
	switch a.Kind {
	case ActionSelectCategory:
		return fmt.Sprintf("select-category(%d)", a.Category)
	case ActionStartTimer:
		return "start-timer"
	case ActionStopTimer:
		return "stop-timer"
	case ActionSendData:
		return "send-data"
	case ActionAnswerQuestion:
		return fmt.Sprintf("answer-question(%d)", a.Question)
	case ActionAddPenalty:
		return fmt.Sprintf("add-penalty(%dm)", a.PenaltyMinutes)
	default:
		return "unknown"
	}
}
