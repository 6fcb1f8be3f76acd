package notify

import (
	"fmt"
	"sync"
	"testing"

	"linkdash/internal/domain/selection"
)

func TestCenter_DrainEmpties(t *testing.T) {
	c := NewCenter(0)
	c.Notify(selection.Message{Level: selection.LevelInfo, Text: "one"})
	c.Notify(selection.Message{Level: selection.LevelError, Text: "two"})

	got := c.Drain()
	if len(got) != 2 || got[0].Text != "one" || got[1].Level != selection.LevelError {
		t.Fatalf("Drain() = %+v, want [one two]", got)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", c.Len())
	}
	if again := c.Drain(); again == nil || len(again) != 0 {
		t.Errorf("second Drain() = %#v, want empty non-nil slice", again)
	}
}

func TestCenter_DropsOldestWhenFull(t *testing.T) {
	c := NewCenter(3)
	for i := 1; i <= 5; i++ {
		c.Notify(selection.Message{Text: fmt.Sprint(i)})
	}
	got := c.Drain()
	if len(got) != 3 || got[0].Text != "3" || got[2].Text != "5" {
		t.Errorf("Drain() = %+v, want [3 4 5]", got)
	}
}

func TestCenter_Reset(t *testing.T) {
	c := NewCenter(10)
	c.Notify(selection.Message{Text: "stale"})
	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", c.Len())
	}
}

func TestCenter_ConcurrentNotify(t *testing.T) {
	c := NewCenter(1000)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Notify(selection.Message{Text: "x"})
			}
		}()
	}
	wg.Wait()
	if c.Len() != 200 {
		t.Errorf("Len() = %d, want 200", c.Len())
	}
}
