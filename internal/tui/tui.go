package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/service"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

const (
	viewHeader      = "header"
	viewFooter      = "footer"
	viewItems       = "items"
	viewGroups      = "groups"
	viewPrioritized = "prioritized"
	viewDetail      = "detail"
	viewHistory     = "history"
	viewForm        = "form"
	viewHelp        = "help"
)

var listViews = []string{viewItems, viewGroups, viewPrioritized, viewHistory}

type UI struct {
	svc *service.Service
	log *slog.Logger
	gui *gocui.Gui

	items       []model.Item
	groupRows   []treeRow
	prioritized []model.Item
	history     []model.Item
	counts      store.Counts

	collapsed map[int64]bool

	selectedItems       int
	selectedGroups      int
	selectedPrioritized int
	selectedHistory     int
	focus               string
	lastList            string

	form       *formState
	formEditor *formEditor
	helpActive bool
	status     string
}

type formState struct {
	kind    model.Kind
	itemID  int64
	groupID int64
	fields  []formField
	index   int
}

type formEditor struct {
	ui *UI
}

type keybinding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func newUI(svc *service.Service, log *slog.Logger) *UI {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ui := &UI{
		svc:       svc,
		log:       log,
		focus:     viewItems,
		lastList:  viewItems,
		collapsed: make(map[int64]bool),
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run blocks until the user quits.
func Run(svc *service.Service, log *slog.Logger) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(svc, log)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadItems(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func (u *UI) keybindings() []keybinding {
	bindings := []keybinding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", 'a', u.addItem},
		{"", 'n', u.addGroup},
		{"", 's', u.addMember},
		{"", 'e', u.editItem},
		{"", 'd', u.deleteItem},
		{"", 'c', u.toggleInProgress},
		{"", 'x', u.toggleDone},
		{"", 'o', u.openItem},
		{"", '?', u.toggleHelp},
		{"", gocui.KeyTab, u.switchFocus},
		{"", '1', u.focusItems},
		{"", '2', u.focusGroups},
		{"", '3', u.focusPrioritized},
		{"", '4', u.focusDetail},
		{"", '5', u.focusHistory},
		{viewGroups, gocui.KeyEnter, u.toggleCollapse},
		{viewForm, gocui.KeyEnter, u.submitFormNow},
		{viewForm, gocui.KeyCtrlJ, u.submitFormNow},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
	}
	for _, name := range listViews {
		bindings = append(bindings,
			keybinding{name, gocui.KeyArrowDown, u.moveDown},
			keybinding{name, 'j', u.moveDown},
			keybinding{name, gocui.KeyArrowUp, u.moveUp},
			keybinding{name, 'k', u.moveUp},
			keybinding{name, gocui.MouseWheelUp, u.scrollUp},
			keybinding{name, gocui.MouseWheelDown, u.scrollDown},
		)
	}
	return bindings
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	for _, binding := range u.keybindings() {
		if err := gui.SetKeybinding(binding.view, binding.key, gocui.ModNone, binding.handler); err != nil {
			return err
		}
	}
	for _, name := range listViews {
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: name, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, name, opts)
		}}); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX0 := 0
	leftX1 := leftX0 + l.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	itemsY1 := bodyTop + l.itemsHeight - 1
	prioritizedY1 := bodyTop + l.prioritizedHeight - 1
	detailY1 := prioritizedY1 + l.detailHeight

	panes := []struct {
		name           string
		title          string
		color          gocui.Attribute
		x0, y0, x1, y1 int
		highlight      bool
		render         func(*gocui.View)
	}{
		{viewItems, "1 Items", gocui.ColorRed, leftX0, bodyTop, leftX1, itemsY1, true, u.renderItems},
		{viewGroups, "2 Groups", gocui.ColorGreen, leftX0, itemsY1 + 1, leftX1, bodyBottom, true, u.renderGroups},
		{viewPrioritized, "3 Prioritized", gocui.ColorYellow, rightX0, bodyTop, rightX1, prioritizedY1, true, u.renderPrioritized},
		{viewDetail, "4 Detail", gocui.ColorDefault, rightX0, prioritizedY1 + 1, rightX1, detailY1, false, u.renderDetail},
		{viewHistory, "5 History", gocui.ColorCyan, rightX0, detailY1 + 1, rightX1, bodyBottom, true, u.renderHistory},
	}
	for _, pane := range panes {
		view, err := gui.SetView(pane.name, pane.x0, pane.y0, pane.x1, pane.y1, 0)
		if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		if goerrors.Is(err, gocui.ErrUnknownView) {
			view.Title = pane.title
			view.TitleColor = pane.color
			view.Wrap = pane.name == viewDetail
		}
		applyViewStyle(view, u.focus == pane.name, pane.highlight)
		pane.render(view)
	}

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}
	gui.Cursor = u.form != nil
	return nil
}

type paneLayout struct {
	leftWidth         int
	itemsHeight       int
	prioritizedHeight int
	detailHeight      int
}

func computeLayout(width, height int) paneLayout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := max(safeWidth/2, 26)
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	itemsHeight := max(safeHeight/2, 4)

	prioritizedHeight := max(int(float64(safeHeight)*0.3), 3)
	detailHeight := max(int(float64(safeHeight)*0.4), 4)
	if safeHeight-prioritizedHeight-detailHeight < 3 {
		detailHeight = max(safeHeight-prioritizedHeight-3, 3)
	}

	return paneLayout{
		leftWidth:         leftWidth,
		itemsHeight:       itemsHeight,
		prioritizedHeight: prioritizedHeight,
		detailHeight:      detailHeight,
	}
}

// loadItems refreshes every pane from the service. Listing does not touch the
// access history.
func (u *UI) loadItems() error {
	ctx := context.Background()

	u.items = u.svc.ListPlain(ctx)
	u.groupRows = buildGroupTree(u.svc.ListGroups(ctx), u.svc.ListMembers(ctx), u.collapsed)
	u.prioritized = u.svc.Prioritized(ctx)
	u.history = u.svc.History(ctx)
	u.counts = u.svc.Counts(ctx)

	u.selectedItems = clampSelection(u.selectedItems, len(u.items))
	u.selectedGroups = clampSelection(u.selectedGroups, len(u.groupRows))
	u.selectedPrioritized = clampSelection(u.selectedPrioritized, len(u.prioritized))
	u.selectedHistory = clampSelection(u.selectedHistory, len(u.history))
	return nil
}

func clampSelection(selected, length int) int {
	if selected >= length {
		return max(length-1, 0)
	}
	return max(selected, 0)
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	fmt.Fprintf(view, "lazyplan | items: %d | groups: %d | members: %d | history: %d",
		u.counts.Plain, u.counts.Groups, u.counts.Members, u.counts.History)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a item | n group | s member | e edit | d delete | c in progress | x done | o open | enter collapse")
	fmt.Fprintln(view, "tab cycle | 1-5 panes | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderList(view *gocui.View, name string, items []model.Item, selected int) {
	view.Clear()
	focused := u.focus == name
	for i, item := range items {
		fmt.Fprintf(view, "%s %s\n", selectionPrefix(i == selected, focused), formatItemSummary(item))
	}
	if focused {
		view.SetCursor(0, min(selected, len(items)-1))
	}
}

func (u *UI) renderItems(view *gocui.View) {
	u.renderList(view, viewItems, u.items, u.selectedItems)
}

func (u *UI) renderPrioritized(view *gocui.View) {
	u.renderList(view, viewPrioritized, u.prioritized, u.selectedPrioritized)
}

func (u *UI) renderHistory(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewHistory
	for i, item := range u.history {
		fmt.Fprintf(view, "%s %s | %s\n", selectionPrefix(i == u.selectedHistory, focused), strings.ToLower(string(item.Kind)), item.Title)
	}
	if focused {
		view.SetCursor(0, min(u.selectedHistory, len(u.history)-1))
	}
}

func (u *UI) renderGroups(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewGroups
	for i, row := range u.groupRows {
		marker := " "
		if row.HasChildren {
			if u.collapsed[row.Item.ID] {
				marker = "+"
			} else {
				marker = "-"
			}
		}
		indent := strings.Repeat("  ", row.Depth)
		fmt.Fprintf(view, "%s %s%s %s\n", selectionPrefix(i == u.selectedGroups, focused), indent, marker, formatItemSummary(row.Item))
	}
	if focused {
		view.SetCursor(0, min(u.selectedGroups, len(u.groupRows)-1))
	}
}

func selectionPrefix(selected, focused bool) string {
	switch {
	case selected && focused:
		return ">"
	case selected:
		return "*"
	default:
		return " "
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedItem()
	if selected == nil {
		fmt.Fprint(view, "Nothing selected")
		return
	}
	fmt.Fprint(view, strings.Join(u.detailLines(*selected), "\n"))
}

func (u *UI) detailLines(item model.Item) []string {
	end := "n/a"
	if at := item.EndAt(); at != nil {
		end = at.UTC().Format(startLayout)
	}

	lines := []string{
		item.Title,
		fmt.Sprintf("Kind: %s #%d", item.Kind, item.ID),
		fmt.Sprintf("Status: %s", item.Status),
		fmt.Sprintf("Start: %s", formatStart(item.StartAt)),
		fmt.Sprintf("Duration: %s", formatDuration(item.Duration)),
		fmt.Sprintf("End: %s", end),
	}

	switch item.Kind {
	case model.KindMember:
		group := "unknown"
		for _, row := range u.groupRows {
			if row.Item.Kind == model.KindGroup && row.Item.ID == item.GroupID() {
				group = row.Item.Title
				break
			}
		}
		lines = append(lines, fmt.Sprintf("Group: %s (#%d)", group, item.GroupID()))
	case model.KindGroup:
		members := u.svc.ListGroupMembers(context.Background(), item.ID)
		lines = append(lines, fmt.Sprintf("Members: %d", len(members)))
		for _, member := range members {
			lines = append(lines, fmt.Sprintf("- %s [%s]", member.Title, member.Status))
		}
	}

	return append(lines, "", item.Description)
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewItems:
		u.selectedItems = min(row, len(u.items)-1)
	case viewGroups:
		u.selectedGroups = min(row, len(u.groupRows)-1)
	case viewPrioritized:
		u.selectedPrioritized = min(row, len(u.prioritized)-1)
	case viewHistory:
		u.selectedHistory = min(row, len(u.history)-1)
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollDown(1)
	}
	return nil
}

// listFocus is the list pane the selection comes from; the Detail pane
// shows the last list that had focus.
func (u *UI) listFocus() string {
	if u.focus == viewDetail {
		return u.lastList
	}
	return u.focus
}

func (u *UI) selectedItem() *model.Item {
	switch u.listFocus() {
	case viewGroups:
		if u.selectedGroups >= 0 && u.selectedGroups < len(u.groupRows) {
			return &u.groupRows[u.selectedGroups].Item
		}
	case viewPrioritized:
		if u.selectedPrioritized >= 0 && u.selectedPrioritized < len(u.prioritized) {
			return &u.prioritized[u.selectedPrioritized]
		}
	case viewHistory:
		if u.selectedHistory >= 0 && u.selectedHistory < len(u.history) {
			return &u.history[u.selectedHistory]
		}
	default:
		if u.selectedItems >= 0 && u.selectedItems < len(u.items) {
			return &u.items[u.selectedItems]
		}
	}
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	order := []string{viewItems, viewGroups, viewPrioritized, viewDetail, viewHistory}
	next := order[0]
	for i, name := range order {
		if name == u.focus {
			next = order[(i+1)%len(order)]
			break
		}
	}
	return u.setFocus(gui, next)
}

func (u *UI) focusItems(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewItems)
}

func (u *UI) focusGroups(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewGroups)
}

func (u *UI) focusPrioritized(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewPrioritized)
}

func (u *UI) focusDetail(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDetail)
}

func (u *UI) focusHistory(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewHistory)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if name != viewDetail {
		u.lastList = name
	}
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return u.reload(gui, nil)
}

func (u *UI) moveDown(gui *gocui.Gui, _ *gocui.View) error {
	return u.moveSelection(1)
}

func (u *UI) moveUp(gui *gocui.Gui, _ *gocui.View) error {
	return u.moveSelection(-1)
}

func (u *UI) moveSelection(delta int) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewItems:
		u.selectedItems = clampSelection(u.selectedItems+delta, len(u.items))
	case viewGroups:
		u.selectedGroups = clampSelection(u.selectedGroups+delta, len(u.groupRows))
	case viewPrioritized:
		u.selectedPrioritized = clampSelection(u.selectedPrioritized+delta, len(u.prioritized))
	case viewHistory:
		u.selectedHistory = clampSelection(u.selectedHistory+delta, len(u.history))
	}
	return nil
}

func (u *UI) reload(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadItems()
}

func (u *UI) toggleHelp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	if gui != nil {
		_ = gui.DeleteView(viewHelp)
		_, _ = gui.SetCurrentView(u.focus)
	}
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 16
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) addItem(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{kind: model.KindPlain, fields: buildFormFields(nil)}
	return nil
}

func (u *UI) addGroup(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{kind: model.KindGroup, fields: groupFields(buildFormFields(nil))}
	return nil
}

// addMember opens a member form for the group under the cursor in the
// Groups pane; a selected member adds a sibling.
func (u *UI) addMember(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.listFocus() != viewGroups || u.selectedGroups < 0 || u.selectedGroups >= len(u.groupRows) {
		u.status = "select a group first"
		return nil
	}
	groupID := ownerGroupID(u.groupRows[u.selectedGroups])
	u.form = &formState{kind: model.KindMember, groupID: groupID, fields: buildFormFields(nil)}
	return nil
}

func (u *UI) editItem(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedItem()
	if selected == nil {
		return nil
	}
	fields := buildFormFields(selected)
	if selected.Kind == model.KindGroup {
		fields = groupFields(fields)
	}
	u.form = &formState{kind: selected.Kind, itemID: selected.ID, groupID: selected.GroupID(), fields: fields}
	return nil
}

// groupFields keeps title and description; the rest of a group is derived
// from its members.
func groupFields(fields []formField) []formField {
	return fields[:fieldStatus]
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(7, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = formTitle(u.form)
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func formTitle(form *formState) string {
	noun := map[model.Kind]string{
		model.KindPlain:  "Item",
		model.KindGroup:  "Group",
		model.KindMember: "Member",
	}[form.kind]
	if form.itemID != 0 {
		return "Edit " + noun
	}
	if form.kind == model.KindMember {
		return fmt.Sprintf("New Member of #%d", form.groupID)
	}
	return "New " + noun
}

func (u *UI) submitFormNow(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}

	input, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	input.GroupID = u.form.groupID

	if err := u.saveForm(input); err != nil {
		u.fail("save", err)
		return nil
	}

	u.form = nil
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewForm)
		_, _ = gui.SetCurrentView(u.focus)
	}
	return u.loadItems()
}

func (u *UI) saveForm(input service.ItemInput) error {
	ctx := context.Background()
	form := u.form

	var err error
	switch {
	case form.itemID == 0 && form.kind == model.KindGroup:
		_, err = u.svc.CreateGroup(ctx, input)
	case form.itemID == 0 && form.kind == model.KindMember:
		_, err = u.svc.CreateMember(ctx, input)
	case form.itemID == 0:
		_, err = u.svc.CreatePlain(ctx, input)
	default:
		err = u.update(*form, input)
	}
	return err
}

func (u *UI) update(form formState, input service.ItemInput) error {
	ctx := context.Background()
	var err error
	switch form.kind {
	case model.KindGroup:
		_, err = u.svc.UpdateGroup(ctx, form.itemID, input)
	case model.KindMember:
		_, err = u.svc.UpdateMember(ctx, form.itemID, input)
	default:
		_, err = u.svc.UpdatePlain(ctx, form.itemID, input)
	}
	return err
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	if gui != nil {
		_ = gui.DeleteView(viewForm)
		_, _ = gui.SetCurrentView(u.focus)
	}
	return nil
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label)) + len([]rune(current.Value)) + 4
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if ui.form.index == fieldStatus {
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cycleStatus(field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cycleStatus(field.Value, -1)
		}
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

var statusOrder = []model.Status{model.StatusNew, model.StatusInProgress, model.StatusDone}

func cycleStatus(current string, delta int) string {
	status, _ := model.ParseStatus(current)
	index := 0
	for i, candidate := range statusOrder {
		if candidate == status {
			index = i
			break
		}
	}
	index = (index + delta + len(statusOrder)) % len(statusOrder)
	return string(statusOrder[index])
}

func (u *UI) deleteItem(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedItem()
	if selected == nil {
		return nil
	}

	ctx := context.Background()
	var err error
	switch selected.Kind {
	case model.KindGroup:
		_, err = u.svc.DeleteGroup(ctx, selected.ID)
		delete(u.collapsed, selected.ID)
	case model.KindMember:
		_, err = u.svc.DeleteMember(ctx, selected.ID)
	default:
		_, err = u.svc.DeletePlain(ctx, selected.ID)
	}
	if err != nil {
		u.fail("delete", err)
		return nil
	}
	u.status = ""
	return u.loadItems()
}

func (u *UI) toggleCollapse(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewGroups {
		return nil
	}
	if u.selectedGroups < 0 || u.selectedGroups >= len(u.groupRows) {
		return nil
	}
	row := u.groupRows[u.selectedGroups]
	if !row.HasChildren {
		return nil
	}
	u.collapsed[row.Item.ID] = !u.collapsed[row.Item.ID]
	return u.loadItems()
}

func (u *UI) toggleInProgress(gui *gocui.Gui, _ *gocui.View) error {
	return u.toggleStatus(model.StatusInProgress)
}

func (u *UI) toggleDone(gui *gocui.Gui, _ *gocui.View) error {
	return u.toggleStatus(model.StatusDone)
}

// toggleStatus flips the selected item between status and NEW. Group status
// is derived from the members, so groups are left alone.
func (u *UI) toggleStatus(status model.Status) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedItem()
	if selected == nil {
		return nil
	}
	if selected.Kind == model.KindGroup {
		u.status = "group status follows its members"
		return nil
	}

	input := inputFromItem(*selected)
	if selected.Status == status {
		input.Status = string(model.StatusNew)
	} else {
		input.Status = string(status)
	}
	if err := u.update(formState{kind: selected.Kind, itemID: selected.ID}, input); err != nil {
		u.fail("update", err)
		return nil
	}
	u.status = ""
	return u.loadItems()
}

// openItem reads the selected item through the service, which records the
// access in the history pane.
func (u *UI) openItem(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedItem()
	if selected == nil {
		return nil
	}
	if _, err := u.svc.GetAny(context.Background(), selected.ID); err != nil {
		u.fail("open", err)
		return nil
	}
	u.status = ""
	return u.loadItems()
}

func (u *UI) fail(action string, err error) {
	u.status = err.Error()
	u.log.Warn("tui action failed", "action", action, "err", err)
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes",
		"  1 Items | 2 Groups | 3 Prioritized | 4 Detail | 5 History",
		"  j/k or arrows move selection",
		"  mouse click to focus/select, wheel scrolls",
		"",
		"Actions:",
		"  a add item | n add group | s add member (Groups pane)",
		"  e edit | d delete | o open (records history)",
		"  c toggle in progress | x toggle done",
		"  enter collapse/expand group | enter save (form) | tab next field",
		"",
		"Form:",
		"  space/left/right cycle status | ctrl-u clear field | esc cancel",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
