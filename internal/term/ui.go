// Package term is the terminal front-end: a tcell event loop that owns
// all view state, paints the active view from its line cache, and
// turns key and mouse input into engine RPCs.
package term

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/sw5cc/xi-term/internal/config"
	"github.com/sw5cc/xi-term/internal/core"
	"github.com/sw5cc/xi-term/internal/editor"
	"github.com/sw5cc/xi-term/internal/frontend"
	"github.com/sw5cc/xi-term/internal/logging"
	"github.com/sw5cc/xi-term/internal/style"
	"github.com/sw5cc/xi-term/internal/trace"
)

const wheelLines = 3

// multiClickWindow is how close together two presses at one position
// must land to count as a double or triple click.
const multiClickWindow = 400 * time.Millisecond

// Options wires the UI to everything it drives. Client, Views, Styles,
// State, and Queue are required; the rest degrade gracefully when nil.
type Options struct {
	Client   *core.Client
	Views    *editor.Registry
	Styles   *style.Map
	State    *style.State
	Persist  *config.State
	Queue    *frontend.Queue
	Frontend *frontend.Handler
	Tracing  *trace.Controller

	// ConnDead closes when the engine connection dies; the loop then
	// exits with ErrConnClosed.
	ConnDead <-chan struct{}

	Gutter bool
	Logger *logging.Logger

	// Screen overrides the real terminal; tests inject a simulation
	// screen here.
	Screen tcell.Screen
}

// UI runs the terminal front-end. Everything on it is owned by the
// goroutine running Run, except ScheduleRepaint.
type UI struct {
	screen tcell.Screen

	client   *core.Client
	views    *editor.Registry
	styles   *style.Map
	state    *style.State
	persist  *config.State
	queue    *frontend.Queue
	front    *frontend.Handler
	tracing  *trace.Controller
	connDead <-chan struct{}
	logger   *logging.Logger

	gutter bool
	active core.ViewID

	width, height int

	needsPaint bool
	message    string
	clipboard  string

	pasting  bool
	pasteBuf strings.Builder

	mouseDown  bool
	lastClick  time.Time
	lastLine   int
	lastCol    int
	clickCount int

	prompt *prompt

	quit bool
}

// prompt is a one-line input overlaying the status row.
type prompt struct {
	label  string
	input  []rune
	submit func(string)
}

// New validates the wiring and builds the UI. The screen is not
// touched until Init.
func New(opts Options) (*UI, error) {
	switch {
	case opts.Client == nil:
		return nil, fmt.Errorf("term: no client")
	case opts.Views == nil:
		return nil, fmt.Errorf("term: no view registry")
	case opts.Styles == nil:
		return nil, fmt.Errorf("term: no style map")
	case opts.State == nil:
		return nil, fmt.Errorf("term: no theme state")
	case opts.Queue == nil:
		return nil, fmt.Errorf("term: no work queue")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &UI{
		screen:   opts.Screen,
		client:   opts.Client,
		views:    opts.Views,
		styles:   opts.Styles,
		state:    opts.State,
		persist:  opts.Persist,
		queue:    opts.Queue,
		front:    opts.Frontend,
		tracing:  opts.Tracing,
		connDead: opts.ConnDead,
		logger:   logger.WithComponent("term"),
		gutter:   opts.Gutter,
	}, nil
}

// Init readies the screen: raw mode, mouse reporting, bracketed paste.
func (u *UI) Init() error {
	if u.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		u.screen = s
	}
	if err := u.screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	u.screen.EnableMouse()
	u.screen.EnablePaste()
	u.width, u.height = u.screen.Size()
	return nil
}

// Fini restores the terminal.
func (u *UI) Fini() {
	if u.screen != nil {
		u.screen.Fini()
	}
}

// Open asks the engine for a view on path (empty for a scratch
// buffer), registers it, and makes it active. UI goroutine only.
func (u *UI) Open(path string) error {
	id, err := u.client.NewView(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", pathOrUntitled(path), err)
	}
	v := editor.NewView(id, path)
	u.views.Add(v)
	u.active = id
	u.setViewport(v, 0)
	u.needsPaint = true
	return nil
}

// MarkDamaged schedules a repaint. UI goroutine only; the frontend
// handler calls it from queued closures.
func (u *UI) MarkDamaged() {
	u.needsPaint = true
}

// ShowMessage puts a transient message in the status row, replaced by
// the regular status on the next action. UI goroutine only.
func (u *UI) ShowMessage(msg string) {
	u.message = msg
	u.needsPaint = true
}

// ShowHover surfaces a hover result in the status row.
func (u *UI) ShowHover(view core.ViewID, text string) {
	if view != u.active {
		return
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	u.ShowMessage(text)
}

// ScheduleRepaint requests a repaint from any goroutine. The paint
// happens on the UI loop after the current queue drain.
func (u *UI) ScheduleRepaint() {
	u.queue.Post(func() { u.needsPaint = true })
}

// Quit stops the loop from any goroutine, as if the user had quit.
func (u *UI) Quit() {
	if u.screen == nil {
		return
	}
	_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Run is the UI loop: screen events and queued engine work, one
// goroutine, until quit or connection death.
func (u *UI) Run() error {
	events := make(chan tcell.Event, 16)
	loopQuit := make(chan struct{})
	defer close(loopQuit)
	go u.screen.ChannelEvents(events, loopQuit)

	u.resizeTo(u.screen.Size())
	u.needsPaint = true
	u.paintIfNeeded()

	for !u.quit {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			u.handleEvent(ev)
		case <-u.queue.Wake():
			for _, fn := range u.queue.Drain() {
				fn()
			}
		case <-u.connDead:
			return core.ErrConnClosed
		}
		u.paintIfNeeded()
	}
	return nil
}

func (u *UI) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.resizeTo(ev.Size())
	case *tcell.EventKey:
		u.handleKey(ev)
	case *tcell.EventMouse:
		u.handleMouse(ev)
	case *tcell.EventPaste:
		u.handlePaste(ev.Start())
	case *tcell.EventInterrupt:
		u.quit = true
	}
}

// resizeTo adopts a new screen size: the frame is persisted for the
// next session and every view's viewport is re-announced so the engine
// pushes the right region.
func (u *UI) resizeTo(w, h int) {
	if w == u.width && h == u.height && w != 0 {
		return
	}
	u.width, u.height = w, h
	if u.persist != nil {
		if err := u.persist.SetFrame(w, h); err != nil {
			u.logger.Warn("frame not persisted: %v", err)
		}
	}
	for _, id := range u.views.IDs() {
		if v, ok := u.views.Get(id); ok {
			first, _ := v.Visible()
			v.SetVisible(-1, -1) // force the scroll RPC at the new height
			u.setViewport(v, first)
		}
	}
	u.needsPaint = true
}

func (u *UI) handleKey(ev *tcell.EventKey) {
	if u.pasting {
		switch ev.Key() {
		case tcell.KeyRune:
			u.pasteBuf.WriteRune(ev.Rune())
		case tcell.KeyEnter:
			u.pasteBuf.WriteByte('\n')
		case tcell.KeyTab:
			u.pasteBuf.WriteByte('\t')
		}
		return
	}
	if u.prompt != nil {
		u.promptKey(ev)
		return
	}
	u.apply(translateKey(ev))
}

func (u *UI) apply(act action) {
	if act.kind == actionNone {
		return
	}
	u.message = ""
	u.needsPaint = true

	// Global actions work without a view.
	switch act.kind {
	case actionQuit:
		u.quit = true
		return
	case actionCycleTheme:
		u.cycleTheme()
		return
	case actionOpenPrompt:
		u.openPrompt("open: ", func(path string) {
			if path == "" {
				return
			}
			if err := u.Open(path); err != nil {
				u.ShowMessage(err.Error())
			}
		})
		return
	case actionToggleTrace:
		u.toggleTrace()
		return
	case actionExportTrace:
		u.exportTrace()
		return
	case actionNextView:
		u.cycleView(1)
		return
	case actionPrevView:
		u.cycleView(-1)
		return
	}

	v, ok := u.activeView()
	if !ok {
		return
	}
	id := v.ID()

	var err error
	switch act.kind {
	case actionInsert:
		err = u.client.Insert(id, act.chars)
	case actionEdit:
		err = u.client.Edit(id, act.method, nil)
	case actionMove:
		err = u.client.Move(id, act.dir, act.modify)
	case actionPage:
		if act.up {
			err = u.client.PageUp(id, act.modify)
		} else {
			err = u.client.PageDown(id, act.modify)
		}
	case actionSave:
		u.save(v)
	case actionCut:
		var text string
		if text, err = u.client.Cut(id); err == nil {
			u.clipboard = text
		}
	case actionCopy:
		var text string
		if text, err = u.client.Copy(id); err == nil {
			u.clipboard = text
		}
	case actionPaste:
		if u.clipboard != "" {
			err = u.client.Paste(id, u.clipboard)
		}
	case actionUndo:
		err = u.client.Undo(id)
	case actionRedo:
		err = u.client.Redo(id)
	case actionSelectAll:
		err = u.client.SelectAll(id)
	case actionFindPrompt:
		u.openFindPrompt(id)
	case actionFindNext:
		err = u.client.FindNext(id, true, false)
	case actionCloseView:
		u.closeActive(v)
	case actionCancel:
		err = u.client.Edit(id, "collapse_selections", nil)
		_ = u.client.HighlightFind(id, false)
	}
	if err != nil {
		u.logger.Error("edit not sent: %v", err)
		u.ShowMessage(err.Error())
	}
}

func (u *UI) save(v *editor.View) {
	if v.Path() == "" {
		u.openPrompt("save as: ", func(path string) {
			if path == "" {
				return
			}
			v.SetPath(path)
			u.saveTo(v, path)
		})
		return
	}
	u.saveTo(v, v.Path())
}

func (u *UI) saveTo(v *editor.View, path string) {
	if err := u.client.Save(v.ID(), path); err != nil {
		u.ShowMessage(fmt.Sprintf("save failed: %v", err))
		return
	}
	u.ShowMessage("saved " + path)
}

// cycleTheme asks the engine for the next advertised theme. The switch
// lands when theme_changed comes back.
func (u *UI) cycleTheme() {
	if u.front == nil {
		return
	}
	themes := u.front.Themes()
	if len(themes) == 0 {
		u.ShowMessage("no theme list from engine yet")
		return
	}
	current := u.state.Theme().Name
	next := themes[0]
	for i, name := range themes {
		if name == current {
			next = themes[(i+1)%len(themes)]
			break
		}
	}
	if err := u.client.SetTheme(next); err != nil {
		u.ShowMessage(fmt.Sprintf("set_theme failed: %v", err))
		return
	}
	u.ShowMessage("theme: " + next)
}

func (u *UI) toggleTrace() {
	if u.tracing == nil {
		return
	}
	enabled := !u.tracing.Enabled()
	if err := u.tracing.SetEnabled(enabled); err != nil {
		u.ShowMessage(fmt.Sprintf("tracing toggle failed: %v", err))
		return
	}
	if enabled {
		u.ShowMessage("tracing on")
	} else {
		u.ShowMessage("tracing off")
	}
}

func (u *UI) exportTrace() {
	if u.tracing == nil {
		return
	}
	dest := filepath.Join(os.TempDir(), fmt.Sprintf("xi-trace-%d.json", time.Now().Unix()))
	if err := u.tracing.Export(dest); err != nil {
		u.ShowMessage(fmt.Sprintf("trace export failed: %v", err))
		return
	}
	u.ShowMessage("trace written to " + dest)
}

// closeActive closes the active view on both sides. Closing the last
// view ends the session.
func (u *UI) closeActive(v *editor.View) {
	id := v.ID()
	if err := u.client.CloseView(id); err != nil {
		u.logger.Warn("close_view not sent: %v", err)
	}
	u.views.Remove(id)

	ids := u.views.IDs()
	if len(ids) == 0 {
		u.quit = true
		return
	}
	u.active = ids[len(ids)-1]
}

func (u *UI) cycleView(delta int) {
	ids := u.views.IDs()
	if len(ids) < 2 {
		return
	}
	for i, id := range ids {
		if id == u.active {
			u.active = ids[(i+delta+len(ids))%len(ids)]
			return
		}
	}
	u.active = ids[0]
}

func (u *UI) handleMouse(ev *tcell.EventMouse) {
	v, ok := u.activeView()
	if !ok {
		return
	}
	ma := translateMouse(ev)

	switch ma.kind {
	case mouseWheelUp:
		first, _ := v.Visible()
		u.setViewport(v, first-wheelLines)
		u.needsPaint = true
	case mouseWheelDown:
		first, _ := v.Visible()
		u.setViewport(v, first+wheelLines)
		u.needsPaint = true
	case mousePress:
		line, col := u.screenToDoc(v, ma.x, ma.y)
		if u.mouseDown {
			if err := u.client.Drag(v.ID(), line, col); err != nil {
				u.logger.Warn("drag not sent: %v", err)
			}
		} else {
			u.mouseDown = true
			u.pressAt(v, line, col)
		}
		u.needsPaint = true
	case mouseRelease:
		u.mouseDown = false
	}
}

// pressAt sends a select gesture, widening the granularity on double
// and triple clicks.
func (u *UI) pressAt(v *editor.View, line, col int) {
	now := time.Now()
	if now.Sub(u.lastClick) < multiClickWindow && line == u.lastLine && col == u.lastCol {
		u.clickCount++
	} else {
		u.clickCount = 1
	}
	u.lastClick, u.lastLine, u.lastCol = now, line, col

	granularity := core.GesturePoint
	switch u.clickCount % 3 {
	case 2:
		granularity = core.GestureWord
	case 0:
		granularity = core.GestureLine
	}
	if err := u.client.Click(v.ID(), line, col, granularity, false); err != nil {
		u.logger.Warn("click not sent: %v", err)
	}
}

// screenToDoc converts screen coordinates to a document position. The
// column is a byte offset into the clicked line, clamped to its end.
func (u *UI) screenToDoc(v *editor.View, x, y int) (line, col int) {
	l := u.layout(v)
	first, _ := v.Visible()

	line = first + y
	if y >= l.textHeight {
		line = first + l.textHeight - 1
	}
	if h := v.Cache().Height(); line >= h {
		line = h - 1
	}
	if line < 0 {
		line = 0
	}

	cached := v.Cache().Line(line)
	if cached == nil {
		return line, 0
	}
	return line, columnToByte(trimEOL(cached.Text), x-l.gutterWidth, tabWidthFor(v))
}

func (u *UI) handlePaste(start bool) {
	if start {
		u.pasting = true
		u.pasteBuf.Reset()
		return
	}
	u.pasting = false
	if u.pasteBuf.Len() == 0 {
		return
	}
	if v, ok := u.activeView(); ok {
		if err := u.client.Insert(v.ID(), u.pasteBuf.String()); err != nil {
			u.logger.Warn("paste not sent: %v", err)
		}
	}
	u.pasteBuf.Reset()
}

func (u *UI) promptKey(ev *tcell.EventKey) {
	p := u.prompt
	switch ev.Key() {
	case tcell.KeyEscape:
		u.prompt = nil
	case tcell.KeyEnter:
		u.prompt = nil
		p.submit(string(p.input))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.input) > 0 {
			p.input = p.input[:len(p.input)-1]
		}
	case tcell.KeyRune:
		p.input = append(p.input, ev.Rune())
	}
	u.needsPaint = true
}

func (u *UI) openPrompt(label string, submit func(string)) {
	u.prompt = &prompt{label: label, submit: submit}
	u.needsPaint = true
}

func (u *UI) openFindPrompt(id core.ViewID) {
	u.openPrompt("find: ", func(query string) {
		if query == "" {
			return
		}
		if err := u.client.Find(id, query, false, false, false); err != nil {
			u.ShowMessage(fmt.Sprintf("find failed: %v", err))
			return
		}
		_ = u.client.HighlightFind(id, true)
		_ = u.client.FindNext(id, true, true)
	})
}

// setViewport pins a view's visible interval and tells the engine,
// which pushes updates only for lines someone can see.
func (u *UI) setViewport(v *editor.View, first int) {
	if h := v.Cache().Height(); first >= h {
		first = h - 1
	}
	if first < 0 {
		first = 0
	}
	l := u.layout(v)
	last := first + l.textHeight
	if f0, l0 := v.Visible(); f0 == first && l0 == last {
		return
	}
	v.SetVisible(first, last)
	if err := u.client.Scroll(v.ID(), first, last); err != nil {
		u.logger.Warn("scroll not sent: %v", err)
	}
}

// followCaret scrolls the viewport to keep the engine-reported caret
// visible.
func (u *UI) followCaret(v *editor.View) {
	if l := u.layout(v); l.textHeight > 0 {
		line, _ := v.Caret()
		first, _ := v.Visible()
		next := first
		if line < first {
			next = line
		} else if line >= first+l.textHeight {
			next = line - l.textHeight + 1
		}
		if next != first {
			u.setViewport(v, next)
		}
	}
}

func (u *UI) layout(v *editor.View) layout {
	return computeLayout(u.width, u.height, v.Cache().Height(), u.gutter)
}

func (u *UI) activeView() (*editor.View, bool) {
	return u.views.Get(u.active)
}

func (u *UI) paintIfNeeded() {
	if !u.needsPaint {
		return
	}
	u.needsPaint = false
	u.paint()
}

func (u *UI) paint() {
	theme := u.state.Theme()
	base := toTcell(style.Style{}, theme)
	u.screen.Fill(' ', base)

	v, ok := u.activeView()
	if !ok {
		drawText(u.screen, 0, 0, u.width, base, "no open views  (ctrl-o to open, ctrl-q to quit)")
		if u.prompt != nil {
			u.paintPrompt(layout{textHeight: u.height - 1}, theme)
		} else {
			u.screen.HideCursor()
		}
		u.screen.Show()
		return
	}

	u.followCaret(v)
	l := u.layout(v)
	cx, cy, cursor := paintView(u.screen, l, v, u.styles, theme, tabWidthFor(v))
	u.paintStatus(l, v, theme)

	switch {
	case u.prompt != nil:
		u.paintPrompt(l, theme)
	case cursor:
		u.screen.ShowCursor(cx, cy)
	default:
		u.screen.HideCursor()
	}
	u.screen.Show()
	v.ClearDirty()
}

func (u *UI) paintStatus(l layout, v *editor.View, theme style.Theme) {
	y := l.textHeight
	if y < 0 || y >= u.height {
		return
	}
	st := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(theme.Foreground.R), int32(theme.Foreground.G), int32(theme.Foreground.B))).
		Background(tcell.NewRGBColor(int32(theme.Gutter.R), int32(theme.Gutter.G), int32(theme.Gutter.B)))
	for x := 0; x < u.width; x++ {
		u.screen.SetContent(x, y, ' ', nil, st)
	}

	left := u.message
	if left == "" {
		left = pathOrUntitled(v.Path())
		if !v.Pristine() {
			left += " [+]"
		}
		for _, item := range v.Status().Aligned("left") {
			left += "  " + item.Value
		}
	}

	var parts []string
	for _, item := range v.Status().Aligned("right") {
		parts = append(parts, item.Value)
	}
	if lang := v.Language(); lang != "" {
		parts = append(parts, lang)
	}
	line, col := v.Caret()
	parts = append(parts, fmt.Sprintf("%d:%d", line+1, col+1))
	right := strings.Join(parts, "  ")

	drawText(u.screen, 0, y, u.width, st, left)
	rx := u.width - displayWidth(right, 0, 1)
	if rx > 0 {
		drawText(u.screen, rx, y, u.width, st, right)
	}
}

// paintPrompt overlays the status row with the prompt and parks the
// cursor at the input position.
func (u *UI) paintPrompt(l layout, theme style.Theme) {
	y := l.textHeight
	if y < 0 || y >= u.height {
		return
	}
	st := toTcell(style.Style{}, theme).Reverse(true)
	for x := 0; x < u.width; x++ {
		u.screen.SetContent(x, y, ' ', nil, st)
	}
	text := u.prompt.label + string(u.prompt.input)
	end := drawText(u.screen, 0, y, u.width, st, text)
	u.screen.ShowCursor(end, y)
}

func tabWidthFor(v *editor.View) int {
	if val, ok := v.ConfigValue("tab_size"); ok {
		if n, ok := val.(float64); ok && n > 0 {
			return int(n)
		}
	}
	return defaultTabWidth
}

func pathOrUntitled(path string) string {
	if path == "" {
		return "[untitled]"
	}
	return path
}
