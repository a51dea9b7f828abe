package streak

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAdvanceFirstCompletion(t *testing.T) {
	streak, last := Advance("", day("2025-03-10"), 0)
	if streak != 1 {
		t.Errorf("Expected streak 1, got %d", streak)
	}
	if last != "2025-03-10" {
		t.Errorf("Expected lastCompletedDate 2025-03-10, got %s", last)
	}
}

func TestAdvanceSameDayIsNoOp(t *testing.T) {
	streak, last := Advance("2025-03-10", day("2025-03-10"), 4)
	if streak != 4 {
		t.Errorf("Expected streak unchanged at 4, got %d", streak)
	}
	if last != "2025-03-10" {
		t.Errorf("Expected lastCompletedDate unchanged, got %s", last)
	}
}

func TestAdvanceConsecutiveDayIncrements(t *testing.T) {
	streak, last := Advance("2025-03-10", day("2025-03-11"), 4)
	if streak != 5 {
		t.Errorf("Expected streak 5, got %d", streak)
	}
	if last != "2025-03-11" {
		t.Errorf("Expected lastCompletedDate 2025-03-11, got %s", last)
	}
}

func TestAdvanceGapResets(t *testing.T) {
	streak, last := Advance("2025-03-10", day("2025-03-13"), 9)
	if streak != 1 {
		t.Errorf("Expected streak reset to 1, got %d", streak)
	}
	if last != "2025-03-13" {
		t.Errorf("Expected lastCompletedDate 2025-03-13, got %s", last)
	}
}

func TestAdvanceBackwardsClockResets(t *testing.T) {
	streak, _ := Advance("2025-03-10", day("2025-03-08"), 6)
	if streak != 1 {
		t.Errorf("Expected streak reset to 1 on negative gap, got %d", streak)
	}
}

func TestAdvanceUnparsableLastDateResets(t *testing.T) {
	streak, last := Advance("not-a-date", day("2025-03-10"), 3)
	if streak != 1 {
		t.Errorf("Expected streak reset to 1, got %d", streak)
	}
	if last != "2025-03-10" {
		t.Errorf("Expected lastCompletedDate 2025-03-10, got %s", last)
	}
}

func TestAdvanceMonthBoundary(t *testing.T) {
	streak, _ := Advance("2025-03-31", day("2025-04-01"), 2)
	if streak != 3 {
		t.Errorf("Expected streak 3 across month boundary, got %d", streak)
	}
}
