// Package cards maps RFID card UIDs to game actions.
package cards

import (
	"encoding/hex"
	"fmt"
	"strings"

	"card-quiz/internal/domain"
)

// Deployment card set. UIDs are the five bytes returned by the reader's anticollision step.
var (
	category1UID = []byte{0xF3, 0xC7, 0x1A, 0x13, 0x3D}
	category2UID = []byte{0x8A, 0x8D, 0x57, 0x54, 0x04}
	category3UID = []byte{0x12, 0x9C, 0x19, 0xFA, 0x6D}

	startTimerUID = []byte{0x5A, 0x21, 0xC4, 0x2C, 0x93}
	stopTimerUID  = []byte{0x00, 0x64, 0x56, 0xD3, 0xE1}
	sendDataUID   = []byte{0xD3, 0x34, 0xE7, 0x11, 0x11}

	penalty1UID = []byte{0x63, 0x0A, 0xB2, 0x2C, 0xF7}
	penalty2UID = []byte{0x93, 0x4F, 0xC1, 0x2C, 0x31}
	penalty3UID = []byte{0xA3, 0x7B, 0xD6, 0x2C, 0x22}

	questionUIDs = [domain.MaxQuestions][]byte{
		{0x73, 0xED, 0xBF, 0x2C, 0x0D},
		{0x23, 0xBA, 0xCB, 0x2C, 0x7E},
		{0x23, 0xB8, 0x9F, 0x2C, 0x28},
		{0xD3, 0x91, 0xBF, 0x2C, 0xD1},
		{0x73, 0x2A, 0xD0, 0x2C, 0xA5},
		{0x83, 0xED, 0xCF, 0x2C, 0x8D},
		{0xB3, 0x97, 0xB4, 0x2C, 0xBC},
		{0xE3, 0x11, 0xBF, 0x2C, 0x61},
		{0xD3, 0x6E, 0xCE, 0x2C, 0x5F},
		{0xB3, 0xAA, 0xCD, 0x2C, 0xF8},
		{0xC3, 0xE4, 0xB9, 0x2C, 0xB2},
		{0x53, 0xB3, 0xCD, 0x2C, 0x01},
		{0x83, 0x74, 0xF8, 0x2C, 0x23},
		{0xE3, 0xD4, 0xCB, 0x2C, 0xD0},
		{0x13, 0xE9, 0xA0, 0x2C, 0x76},
	}
)

// table is keyed by FormatUID and never mutated after init.
var table = buildTable()

// categoryUIDs is the inverse mapping used by the collector.
var categoryUIDs = map[domain.CategoryID]string{
	domain.Category1: FormatUID(category1UID),
	domain.Category2: FormatUID(category2UID),
	domain.Category3: FormatUID(category3UID),
}

func buildTable() map[string]domain.CardAction {
	t := map[string]domain.CardAction{
		FormatUID(category1UID):  domain.SelectCategory(domain.Category1),
		FormatUID(category2UID):  domain.SelectCategory(domain.Category2),
		FormatUID(category3UID):  domain.SelectCategory(domain.Category3),
		FormatUID(startTimerUID): domain.StartTimer(),
		FormatUID(stopTimerUID):  domain.StopTimer(),
		FormatUID(sendDataUID):   domain.SendData(),
		FormatUID(penalty1UID):   domain.AddPenaltyMinutes(1),
		FormatUID(penalty2UID):   domain.AddPenaltyMinutes(2),
		FormatUID(penalty3UID):   domain.AddPenaltyMinutes(3),
	}
	for i, uid := range questionUIDs {
		t[FormatUID(uid)] = domain.AnswerQuestion(domain.QuestionNumber(i + 1))
	}
	return t
}

// Classify returns the action bound to uid, or an Unknown action.
func Classify(uid []byte) domain.CardAction {
	if action, ok := table[FormatUID(uid)]; ok {
		return action
	}
	return domain.UnknownAction()
}

// FormatUID renders a UID the way devices put it on the wire: "0xF30xC7...".
func FormatUID(uid []byte) string {
	var b strings.Builder
	b.Grow(len(uid) * 4)
	for _, x := range uid {
		fmt.Fprintf(&b, "0x%02X", x)
	}
	return b.String()
}

// ParseUID accepts either the wire form ("0xF30xC7...") or plain hex ("F3C7...").
func ParseUID(raw string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	if s == "" {
		return nil, fmt.Errorf("parse uid %q: empty", raw)
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse uid %q: %w", raw, err)
	}
	return out, nil
}

// CategoryForUID maps a wire category_uid back to its category.
func CategoryForUID(uid string) (domain.CategoryID, bool) {
	for c, s := range categoryUIDs {
		if strings.EqualFold(s, strings.TrimSpace(uid)) {
			return c, true
		}
	}
	return domain.CategoryUnassigned, false
}

// CategoryUID returns the wire form of a category card UID.
func CategoryUID(c domain.CategoryID) string {
	return categoryUIDs[c]
}

// UIDByName resolves a printed card label (category1, start, stop, send, q7,
// penalty2) to its UID. Used by the console simulator.
func UIDByName(name string) ([]byte, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "category1":
		return category1UID, true
	case "category2":
		return category2UID, true
	case "category3":
		return category3UID, true
	case "start":
		return startTimerUID, true
	case "stop":
		return stopTimerUID, true
	case "send":
		return sendDataUID, true
	case "penalty1":
		return penalty1UID, true
	case "penalty2":
		return penalty2UID, true
	case "penalty3":
		return penalty3UID, true
	}
	var q int
	if _, err := fmt.Sscanf(n, "q%d", &q); err == nil && domain.QuestionNumber(q).Valid() && fmt.Sprintf("q%d", q) == n {
		return questionUIDs[q-1], true
	}
	return nil, false
}
