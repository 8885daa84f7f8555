package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigationStack(t *testing.T) {
	t.Parallel()

	t.Run("empty stack falls back to main menu", func(t *testing.T) {
		t.Parallel()
		ns := NewNavigationStack()

		assert.Equal(t, MenuMain, ns.Current(1))
		assert.Equal(t, MenuMain, ns.Pop(1))
		assert.Zero(t, ns.Depth(1))
	})

	t.Run("push and pop", func(t *testing.T) {
		t.Parallel()
		ns := NewNavigationStack()
		ns.Push(1, MenuHome)
		ns.Push(1, MenuMore)
		ns.Push(1, MenuMore)

		assert.Equal(t, 2, ns.Depth(1), "repeated menu is recorded once")
		assert.Equal(t, MenuMore, ns.Pop(1))
		assert.Equal(t, MenuHome, ns.Current(1))
	})

	t.Run("oldest entry is dropped when full", func(t *testing.T) {
		t.Parallel()
		ns := NewNavigationStack()
		menus := []MenuType{MenuHome, MenuCalendar, MenuMore, MenuAdmin}
		for i := range maxNavigationDepth + 1 {
			ns.Push(1, menus[i%len(menus)])
		}

		assert.Equal(t, maxNavigationDepth, ns.Depth(1))
		for range maxNavigationDepth - 1 {
			ns.Pop(1)
		}
		assert.Equal(t, MenuCalendar, ns.Current(1), "first push was dropped")
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		ns := NewNavigationStack()
		ns.Push(1, MenuHome)
		ns.Push(2, MenuHome)
		ns.Reset(1)

		assert.Zero(t, ns.Depth(1))
		assert.Equal(t, 1, ns.Depth(2))
	})
}
