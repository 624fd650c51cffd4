package core

import (
	"encoding/json"
	"fmt"
)

// Edit-namespace wrappers. Each is one engine edit method; the engine
// applies the edit and answers with update notifications, so none of
// these mutate front-end state directly.

// Insert types text at the cursor.
func (c *Client) Insert(view ViewID, chars string) error {
	return c.Edit(view, "insert", map[string]string{"chars": chars})
}

// InsertNewline inserts a line break.
func (c *Client) InsertNewline(view ViewID) error {
	return c.Edit(view, "insert_newline", nil)
}

// InsertTab inserts a tab or indent, per the engine's settings.
func (c *Client) InsertTab(view ViewID) error {
	return c.Edit(view, "insert_tab", nil)
}

// DeleteBackward deletes before the cursor.
func (c *Client) DeleteBackward(view ViewID) error {
	return c.Edit(view, "delete_backward", nil)
}

// DeleteForward deletes after the cursor.
func (c *Client) DeleteForward(view ViewID) error {
	return c.Edit(view, "delete_forward", nil)
}

// DeleteWordBackward deletes the word before the cursor.
func (c *Client) DeleteWordBackward(view ViewID) error {
	return c.Edit(view, "delete_word_backward", nil)
}

// DeleteToBeginningOfLine deletes from the cursor to column zero.
func (c *Client) DeleteToBeginningOfLine(view ViewID) error {
	return c.Edit(view, "delete_to_beginning_of_line", nil)
}

// Move sends one cursor-movement edit. The modify flag extends the
// selection instead of collapsing it.
func (c *Client) Move(view ViewID, direction string, modify bool) error {
	method := "move_" + direction
	if modify {
		method += "_and_modify_selection"
	}
	return c.Edit(view, method, nil)
}

// Movement directions accepted by Move.
const (
	MoveUp    = "up"
	MoveDown  = "down"
	MoveLeft  = "left"
	MoveRight = "right"

	MoveWordLeft  = "word_left"
	MoveWordRight = "word_right"

	MoveToLeftEndOfLine       = "to_left_end_of_line"
	MoveToRightEndOfLine      = "to_right_end_of_line"
	MoveToBeginningOfDocument = "to_beginning_of_document"
	MoveToEndOfDocument       = "to_end_of_document"
)

// PageDown scrolls the cursor one page down.
func (c *Client) PageDown(view ViewID, modify bool) error {
	method := "page_down"
	if modify {
		method += "_and_modify_selection"
	}
	return c.Edit(view, method, nil)
}

// PageUp scrolls the cursor one page up.
func (c *Client) PageUp(view ViewID, modify bool) error {
	method := "page_up"
	if modify {
		method += "_and_modify_selection"
	}
	return c.Edit(view, method, nil)
}

// SelectAll selects the whole document.
func (c *Client) SelectAll(view ViewID) error {
	return c.Edit(view, "select_all", nil)
}

// Scroll tells the engine which line interval is visible so it can
// push updates for the right region. Half-open [first, last).
func (c *Client) Scroll(view ViewID, first, last int) error {
	return c.Edit(view, "scroll", []int{first, last})
}

// Resize reports the view's new size in cells.
func (c *Client) Resize(view ViewID, width, height int) error {
	return c.Edit(view, "resize", map[string]int{
		"width":  width,
		"height": height,
	})
}

// Gesture granularities for Click.
const (
	GesturePoint = "point"
	GestureWord  = "word"
	GestureLine  = "line"
)

// Click reports a pointer gesture at a document position.
func (c *Client) Click(view ViewID, line, col int, granularity string, multi bool) error {
	ty := map[string]any{"select": map[string]any{
		"granularity": granularity,
		"multi":       multi,
	}}
	return c.Edit(view, "gesture", map[string]any{
		"line": line,
		"col":  col,
		"ty":   ty,
	})
}

// Drag extends the selection during a pointer drag.
func (c *Client) Drag(view ViewID, line, col int) error {
	return c.Edit(view, "drag", []int{line, col, 0})
}

// Undo reverts the last engine edit.
func (c *Client) Undo(view ViewID) error {
	return c.Edit(view, "undo", nil)
}

// Redo reapplies the last undone edit.
func (c *Client) Redo(view ViewID) error {
	return c.Edit(view, "redo", nil)
}

// Transpose swaps the characters around the cursor.
func (c *Client) Transpose(view ViewID) error {
	return c.Edit(view, "transpose", nil)
}

// DuplicateLine duplicates the line or selection.
func (c *Client) DuplicateLine(view ViewID) error {
	return c.Edit(view, "duplicate_line", nil)
}

// Uppercase folds the selection to upper case.
func (c *Client) Uppercase(view ViewID) error {
	return c.Edit(view, "uppercase", nil)
}

// Lowercase folds the selection to lower case.
func (c *Client) Lowercase(view ViewID) error {
	return c.Edit(view, "lowercase", nil)
}

// Capitalize title-cases the selection.
func (c *Client) Capitalize(view ViewID) error {
	return c.Edit(view, "capitalize", nil)
}

// Indent shifts the selection right by one indent unit.
func (c *Client) Indent(view ViewID) error {
	return c.Edit(view, "indent", nil)
}

// Outdent shifts the selection left by one indent unit.
func (c *Client) Outdent(view ViewID) error {
	return c.Edit(view, "outdent", nil)
}

// Yank inserts the last cut or copied text at the cursor.
func (c *Client) Yank(view ViewID) error {
	return c.Edit(view, "yank", nil)
}

// Cut removes the selection and returns it. Synchronous.
func (c *Client) Cut(view ViewID) (string, error) {
	return c.editForText(view, "cut")
}

// Copy returns the selection without removing it. Synchronous.
func (c *Client) Copy(view ViewID) (string, error) {
	return c.editForText(view, "copy")
}

// editForText runs a synchronous edit that yields text. A null result
// means an empty selection.
func (c *Client) editForText(view ViewID, method string) (string, error) {
	raw, err := c.EditRequest(view, method, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%s result: %w", method, err)
	}
	return text, nil
}

// Paste inserts external text, preserving the engine's paste
// semantics for multiple cursors.
func (c *Client) Paste(view ViewID, chars string) error {
	return c.Edit(view, "paste", map[string]string{"chars": chars})
}

// Find starts or updates a find session.
func (c *Client) Find(view ViewID, chars string, caseSensitive, regex, wholeWords bool) error {
	return c.Edit(view, "find", map[string]any{
		"chars":          chars,
		"case_sensitive": caseSensitive,
		"regex":          regex,
		"whole_words":    wholeWords,
	})
}

// FindNext moves to the next match.
func (c *Client) FindNext(view ViewID, wrapAround, allowSame bool) error {
	return c.Edit(view, "find_next", map[string]bool{
		"wrap_around": wrapAround,
		"allow_same":  allowSame,
	})
}

// FindPrevious moves to the previous match.
func (c *Client) FindPrevious(view ViewID, wrapAround bool) error {
	return c.Edit(view, "find_previous", map[string]bool{
		"wrap_around": wrapAround,
	})
}

// HighlightFind toggles highlighting of find matches.
func (c *Client) HighlightFind(view ViewID, visible bool) error {
	return c.Edit(view, "highlight_find", map[string]bool{
		"visible": visible,
	})
}

// Replace sets the replacement text for the active find session.
func (c *Client) Replace(view ViewID, chars string, preserveCase bool) error {
	return c.Edit(view, "replace", map[string]any{
		"chars":         chars,
		"preserve_case": preserveCase,
	})
}

// ReplaceNext replaces the current match and advances.
func (c *Client) ReplaceNext(view ViewID) error {
	return c.Edit(view, "replace_next", nil)
}

// ReplaceAll replaces every match.
func (c *Client) ReplaceAll(view ViewID) error {
	return c.Edit(view, "replace_all", nil)
}
