package domain

import "testing"

func TestActionDelta(t *testing.T) {
	cases := []struct {
		action Action
		dRow   int
		dCol   int
	}{
		{ActionUp, -1, 0},
		{ActionDown, 1, 0},
		{ActionLeft, 0, -1},
		{ActionRight, 0, 1},
	}
	for _, tc := range cases {
		dRow, dCol := tc.action.Delta()
		if dRow != tc.dRow || dCol != tc.dCol {
			t.Fatalf("%s delta = (%d,%d), want (%d,%d)", tc.action, dRow, dCol, tc.dRow, tc.dCol)
		}
	}
}

func TestWallForBlocksItsAction(t *testing.T) {
	want := map[Action]Wall{
		ActionUp:    WallUp,
		ActionDown:  WallDown,
		ActionLeft:  WallLeft,
		ActionRight: WallRight,
	}
	for a, w := range want {
		if got := WallFor(a); got != w {
			t.Fatalf("WallFor(%s) = %d, want %d", a, got, w)
		}
	}
}

func TestActionsOrderIsStable(t *testing.T) {
	got := Actions()
	want := [NumActions]Action{ActionUp, ActionDown, ActionLeft, ActionRight}
	if got != want {
		t.Fatalf("action order = %v, want %v", got, want)
	}
}

func TestActionString(t *testing.T) {
	if ActionUp.String() != "up" || ActionRight.String() != "right" {
		t.Fatalf("unexpected action names: %s, %s", ActionUp, ActionRight)
	}
	if Action(99).String() != "invalid" {
		t.Fatalf("out-of-range action did not stringify as invalid")
	}
}
