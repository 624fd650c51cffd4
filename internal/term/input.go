package term

import (
	"github.com/gdamore/tcell/v2"

	"github.com/sw5cc/xi-term/internal/core"
)

// actionKind tags what a key event asks for.
type actionKind int

const (
	actionNone actionKind = iota
	actionInsert
	actionEdit
	actionMove
	actionPage
	actionSave
	actionQuit
	actionCut
	actionCopy
	actionPaste
	actionUndo
	actionRedo
	actionSelectAll
	actionCycleTheme
	actionFindPrompt
	actionFindNext
	actionOpenPrompt
	actionCloseView
	actionNextView
	actionPrevView
	actionToggleTrace
	actionExportTrace
	actionCancel
)

// action is one decoded key event. Exactly one of chars, method, or
// dir is meaningful, depending on kind.
type action struct {
	kind   actionKind
	chars  string
	method string
	dir    string
	modify bool
	up     bool
}

// translateKey maps a key event to an editor action. Unbound keys
// yield actionNone.
func translateKey(ev *tcell.EventKey) action {
	mod := ev.Modifiers()
	shift := mod&tcell.ModShift != 0
	ctrl := mod&tcell.ModCtrl != 0
	alt := mod&tcell.ModAlt != 0

	switch ev.Key() {
	case tcell.KeyUp:
		return action{kind: actionMove, dir: core.MoveUp, modify: shift}
	case tcell.KeyDown:
		return action{kind: actionMove, dir: core.MoveDown, modify: shift}
	case tcell.KeyLeft:
		if ctrl || alt {
			return action{kind: actionMove, dir: core.MoveWordLeft, modify: shift}
		}
		return action{kind: actionMove, dir: core.MoveLeft, modify: shift}
	case tcell.KeyRight:
		if ctrl || alt {
			return action{kind: actionMove, dir: core.MoveWordRight, modify: shift}
		}
		return action{kind: actionMove, dir: core.MoveRight, modify: shift}
	case tcell.KeyHome:
		if ctrl {
			return action{kind: actionMove, dir: core.MoveToBeginningOfDocument, modify: shift}
		}
		return action{kind: actionMove, dir: core.MoveToLeftEndOfLine, modify: shift}
	case tcell.KeyEnd:
		if ctrl {
			return action{kind: actionMove, dir: core.MoveToEndOfDocument, modify: shift}
		}
		return action{kind: actionMove, dir: core.MoveToRightEndOfLine, modify: shift}
	case tcell.KeyPgUp:
		return action{kind: actionPage, up: true, modify: shift}
	case tcell.KeyPgDn:
		return action{kind: actionPage, modify: shift}

	case tcell.KeyEnter:
		return action{kind: actionEdit, method: "insert_newline"}
	case tcell.KeyTab:
		return action{kind: actionEdit, method: "insert_tab"}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if alt {
			return action{kind: actionEdit, method: "delete_word_backward"}
		}
		return action{kind: actionEdit, method: "delete_backward"}
	case tcell.KeyDelete:
		return action{kind: actionEdit, method: "delete_forward"}
	case tcell.KeyEscape:
		return action{kind: actionCancel}

	case tcell.KeyCtrlS:
		return action{kind: actionSave}
	case tcell.KeyCtrlQ:
		return action{kind: actionQuit}
	case tcell.KeyCtrlZ:
		return action{kind: actionUndo}
	case tcell.KeyCtrlR:
		return action{kind: actionRedo}
	case tcell.KeyCtrlX:
		return action{kind: actionCut}
	case tcell.KeyCtrlC:
		return action{kind: actionCopy}
	case tcell.KeyCtrlV:
		return action{kind: actionPaste}
	case tcell.KeyCtrlA:
		return action{kind: actionSelectAll}
	case tcell.KeyCtrlT:
		return action{kind: actionCycleTheme}
	case tcell.KeyCtrlD:
		return action{kind: actionEdit, method: "duplicate_line"}
	case tcell.KeyCtrlF:
		return action{kind: actionFindPrompt}
	case tcell.KeyCtrlG:
		return action{kind: actionFindNext}
	case tcell.KeyCtrlO:
		return action{kind: actionOpenPrompt}
	case tcell.KeyCtrlW:
		return action{kind: actionCloseView}
	case tcell.KeyF2:
		return action{kind: actionPrevView}
	case tcell.KeyF3:
		return action{kind: actionNextView}
	case tcell.KeyF5:
		return action{kind: actionToggleTrace}
	case tcell.KeyF6:
		return action{kind: actionExportTrace}

	case tcell.KeyRune:
		if ctrl || alt {
			return action{}
		}
		return action{kind: actionInsert, chars: string(ev.Rune())}
	}
	return action{}
}

// mouseKind tags a decoded mouse event.
type mouseKind int

const (
	mouseNone mouseKind = iota
	mousePress
	mouseRelease
	mouseWheelUp
	mouseWheelDown
)

// mouseAction is one decoded mouse event in screen coordinates.
type mouseAction struct {
	kind mouseKind
	x, y int
}

// translateMouse maps a mouse event to screen-level terms. Drag
// detection is the caller's job; tcell reports a held button as a
// stream of press events at new positions.
func translateMouse(ev *tcell.EventMouse) mouseAction {
	x, y := ev.Position()
	btn := ev.Buttons()
	switch {
	case btn&tcell.WheelUp != 0:
		return mouseAction{kind: mouseWheelUp, x: x, y: y}
	case btn&tcell.WheelDown != 0:
		return mouseAction{kind: mouseWheelDown, x: x, y: y}
	case btn&tcell.Button1 != 0:
		return mouseAction{kind: mousePress, x: x, y: y}
	case btn == tcell.ButtonNone:
		return mouseAction{kind: mouseRelease, x: x, y: y}
	}
	return mouseAction{kind: mouseNone, x: x, y: y}
}
