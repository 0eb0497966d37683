package cards

import (
	"testing"

	"card-quiz/internal/domain"
)

func TestClassifyKnownCards(t *testing.T) {
	cases := []struct {
		uid  []byte
		want domain.CardAction
	}{
		{category1UID, domain.SelectCategory(domain.Category1)},
		{category3UID, domain.SelectCategory(domain.Category3)},
		{startTimerUID, domain.StartTimer()},
		{stopTimerUID, domain.StopTimer()},
		{sendDataUID, domain.SendData()},
		{penalty2UID, domain.AddPenaltyMinutes(2)},
		{questionUIDs[0], domain.AnswerQuestion(1)},
		{questionUIDs[14], domain.AnswerQuestion(15)},
	}
	for _, tc := range cases {
		if got := Classify(tc.uid); got != tc.want {
			t.Fatalf("classify %s: expected %v, got %v", FormatUID(tc.uid), tc.want, got)
		}
	}
}

func TestClassifyUnknownIsNotAnError(t *testing.T) {
	for _, uid := range [][]byte{nil, {}, {0x01, 0x02, 0x03, 0x04, 0x05}, {0xF3, 0xC7}} {
		if got := Classify(uid); got.Kind != domain.ActionUnknown {
			t.Fatalf("expected unknown for %v, got %v", uid, got)
		}
	}
}

func TestEveryQuestionCardIsDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i, uid := range questionUIDs {
		key := FormatUID(uid)
		if seen[key] {
			t.Fatalf("question %d reuses uid %s", i+1, key)
		}
		seen[key] = true
	}
	if len(table) != 9+domain.MaxQuestions {
		t.Fatalf("expected %d cards in table, got %d", 9+domain.MaxQuestions, len(table))
	}
}

func TestFormatAndParseUID(t *testing.T) {
	wire := FormatUID(category1UID)
	if wire != "0xF30xC70x1A0x130x3D" {
		t.Fatalf("unexpected wire form %q", wire)
	}
	for _, raw := range []string{wire, "F3C71A133D", "f3:c7:1a:13:3d"} {
		uid, err := ParseUID(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if FormatUID(uid) != wire {
			t.Fatalf("parse %q: got %s", raw, FormatUID(uid))
		}
	}
	if _, err := ParseUID("xyz"); err == nil {
		t.Fatalf("expected error for non-hex uid")
	}
}

func TestCategoryForUID(t *testing.T) {
	c, ok := CategoryForUID("0x8A0x8D0x570x540x04")
	if !ok || c != domain.Category2 {
		t.Fatalf("expected category 2, got %v ok=%v", c, ok)
	}
	if CategoryUID(domain.Category2) != "0x8A0x8D0x570x540x04" {
		t.Fatalf("unexpected category uid %q", CategoryUID(domain.Category2))
	}
	if _, ok := CategoryForUID("0x000x000x000x000x00"); ok {
		t.Fatalf("expected unknown category uid")
	}
}

func TestUIDByName(t *testing.T) {
	cases := map[string]domain.CardAction{
		"category2": domain.SelectCategory(domain.Category2),
		"START":     domain.StartTimer(),
		"stop":      domain.StopTimer(),
		"send":      domain.SendData(),
		"q1":        domain.AnswerQuestion(1),
		"q15":       domain.AnswerQuestion(15),
		"penalty3":  domain.AddPenaltyMinutes(3),
	}
	for name, want := range cases {
		uid, ok := UIDByName(name)
		if !ok {
			t.Fatalf("%s: not found", name)
		}
		if got := Classify(uid); got != want {
			t.Fatalf("%s: got %v want %v", name, got, want)
		}
	}
	for _, name := range []string{"q0", "q16", "q1x", "bogus", ""} {
		if _, ok := UIDByName(name); ok {
			t.Fatalf("%s: expected no card", name)
		}
	}
}
