package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"aircraftconsole/internal/actions"
	"aircraftconsole/internal/config"
	"aircraftconsole/internal/console"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/nav"
	"aircraftconsole/internal/session"

	"github.com/fatih/color"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmds := map[string]func([]string) int{
		"login":      loginCmd,
		"logout":     logoutCmd,
		"register":   registerCmd,
		"whoami":     whoamiCmd,
		"open":       openCmd,
		"assemble":   assembleCmd,
		"produce":    produceCmd,
		"work-order": workOrderCmd,
		"cancel":     cancelCmd,
		"recycle":    recycleCmd,
		"personnel":  personnelCmd,
		"team":       teamCmd,
		"delete":     deleteCmd,
	}
	cmd, ok := cmds[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	os.Exit(cmd(os.Args[2:]))
}

func usage() {
	fmt.Println(`acc - aircraft production console for the terminal

Usage:
  acc login <username>
  acc logout
  acc register <username> [-email addr]
  acc whoami
  acc open <panel> [-page N] [-len N] [-q text] [-sort col] [-desc] [-filter param=value]
  acc assemble -model <id> [-work-order <id>]
  acc produce -model <id>
  acc work-order -model <id> -qty <n> [-id <id>] [-team <id>] [-date YYYY-MM-DD] [-notes text]
  acc cancel <work-order-id> [-yes]
  acc recycle part|aircraft <id> [-yes]
  acc personnel <user-id> [-team <id>]
  acc team -name <name> -type <TEAM_TYPE> [-id <id>]
  acc delete personnel|team <id> [-yes]

Every command takes -config <path> (default config.yaml, or $ACC_CONFIG).

Panels:
  dashboard, stock-levels, work-orders, assigned-work-orders, assemble-aircraft,
  produce-part, my-team-parts, parts, aircraft, personnel, teams`)
}

// common are the flags every command shares.
type common struct {
	config *string
	yes    *bool
}

func newFlags(name string) (*flag.FlagSet, common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	def := "config.yaml"
	if p := os.Getenv("ACC_CONFIG"); p != "" {
		def = p
	}
	return fs, common{
		config: fs.String("config", def, "path to config file"),
		yes:    fs.Bool("yes", false, "approve confirmations without asking"),
	}
}

// run is one use of the console against the stored session file.
type run struct {
	cfg *config.Config
	loc *location.Memory
	c   *console.Console
	ctx context.Context
}

func openSession(cm common, panel nav.Panel) (*run, func(), error) {
	cfg, err := config.Load(*cm.config)
	if cfg == nil {
		return nil, nil, err
	}
	var pathErr *os.PathError
	if err != nil && !errors.As(err, &pathErr) {
		// The web-only URLs are not needed here.
		slog.Debug("config.validate", "err", err)
	}
	if cfg.Console.LoginPageURL == "" {
		cfg.Console.LoginPageURL = "/app/login/"
	}
	if cfg.Console.DashboardURL == "" {
		cfg.Console.DashboardURL = "/app/dashboard/"
	}
	for _, u := range []struct{ name, value string }{
		{"api.base_url", cfg.API.BaseURL},
		{"api.login_url", cfg.API.LoginURL},
		{"api.user_me_url", cfg.API.UserMeURL},
	} {
		if u.value == "" {
			return nil, nil, fmt.Errorf("missing %s in configuration", u.name)
		}
	}

	level := cfg.Logging.Level
	if level == "info" {
		level = "warn"
	}
	slog.SetDefault(logging.New(logging.Options{Level: level, Format: "text", Output: os.Stderr}))

	path, err := session.DefaultFilePath()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	loc := location.NewMemory(cfg.Console.DashboardURL, "", panel.Fragment())
	confirm := actions.ConfirmFunc(func(_ context.Context, prompt string) bool {
		if *cm.yes {
			return true
		}
		return ask(prompt)
	})
	c, err := console.New(ctx, console.Options{
		Config:   cfg,
		Storage:  session.NewFile(path),
		Location: loc,
		Client:   console.NewClient(),
		Confirm:  confirm,
	})
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return &run{cfg: cfg, loc: loc, c: c, ctx: ctx}, cancel, nil
}

func ask(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func fail(err error) int {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

// action runs one mutating flow for a logged-in user.
func action(cm common, panel nav.Panel, flow func(*run) actions.Outcome) int {
	s, done, err := openSession(cm, panel)
	if err != nil {
		return fail(err)
	}
	defer done()
	if !s.c.Store.Current().HasToken() {
		return fail(errors.New("not logged in, run: acc login <username>"))
	}
	out := flow(s)
	if _, redirected := s.loc.Redirected(); redirected && out.Err == "" {
		return fail(errors.New("session expired, run: acc login <username>"))
	}
	return printOutcome(s.c, out)
}

func loginCmd(args []string) int {
	fs, cm := newFlags("login")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("usage: acc login <username>")
		return 2
	}
	s, done, err := openSession(cm, nav.Dashboard)
	if err != nil {
		return fail(err)
	}
	defer done()

	pw, err := promptPassword("Password: ")
	if err != nil {
		return fail(err)
	}
	out := s.c.Actions.Login(s.ctx, actions.LoginForm{Username: strings.TrimSpace(fs.Arg(0)), Password: pw})
	if out.Err != "" {
		return printOutcome(s.c, out)
	}
	id := s.c.Identity()
	color.Green("Logged in as %s (%s)", id.Username, id.Label)
	return 0
}

func logoutCmd(args []string) int {
	fs, cm := newFlags("logout")
	_ = fs.Parse(reorderArgs(args))
	s, done, err := openSession(cm, nav.Dashboard)
	if err != nil {
		return fail(err)
	}
	defer done()
	s.c.Actions.Logout(s.ctx)
	color.Green("Logged out")
	return 0
}

func registerCmd(args []string) int {
	fs, cm := newFlags("register")
	email := fs.String("email", "", "email address")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("usage: acc register <username> [-email addr]")
		return 2
	}
	s, done, err := openSession(cm, nav.Dashboard)
	if err != nil {
		return fail(err)
	}
	defer done()

	pw, err := promptPassword("Password: ")
	if err != nil {
		return fail(err)
	}
	pw2, err := promptPassword("Confirm password: ")
	if err != nil {
		return fail(err)
	}
	return printOutcome(s.c, s.c.Actions.Register(s.ctx, actions.RegisterForm{
		Username:  strings.TrimSpace(fs.Arg(0)),
		Email:     strings.TrimSpace(*email),
		Password:  pw,
		Password2: pw2,
	}))
}

func whoamiCmd(args []string) int {
	fs, cm := newFlags("whoami")
	_ = fs.Parse(reorderArgs(args))
	return show(cm, nav.Dashboard, nil)
}

func openCmd(args []string) int {
	fs, cm := newFlags("open")
	var (
		page    = fs.Int("page", 0, "page number, from 1")
		length  = fs.Int("len", 0, "rows per page")
		search  = fs.String("q", "", "search text")
		sortCol = fs.Int("sort", -1, "column index to sort by")
		desc    = fs.Bool("desc", false, "sort descending")
		filters multiFlag
	)
	fs.Var(&filters, "filter", "param=value, repeatable")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("usage: acc open <panel> [-page N] [-len N] [-q text] [-sort col] [-desc] [-filter param=value]")
		return 2
	}
	panel, ok := nav.Parse(fs.Arg(0))
	if !ok {
		return fail(fmt.Errorf("unknown panel %q", fs.Arg(0)))
	}

	preset := func(st *grid.State) {
		if *length != 0 {
			st.SetLength(*length)
		}
		for _, f := range filters {
			if k, v, ok := strings.Cut(f, "="); ok {
				st.SetFilter(k, v)
			}
		}
		if *search != "" {
			st.SetSearch(*search)
		}
		if *sortCol >= 0 {
			st.Order = grid.Order{Column: *sortCol, Desc: *desc}
			st.Start = 0
		}
		if *page > 0 {
			st.SetPage(*page - 1)
		}
	}
	return show(cm, panel, preset)
}

// show opens panel and prints what it displays.
func show(cm common, panel nav.Panel, preset func(*grid.State)) int {
	s, done, err := openSession(cm, panel)
	if err != nil {
		return fail(err)
	}
	defer done()
	if preset != nil {
		for _, d := range console.PanelGrids(panel) {
			s.c.Grids.Preset(d.Name, preset)
		}
	}

	view, err := s.c.Open(s.ctx)
	if err != nil {
		slog.Debug("console.open", "err", err)
	}
	if view.Anonymous {
		return fail(errors.New("not logged in, run: acc login <username>"))
	}
	if _, redirected := s.loc.Redirected(); redirected {
		return fail(errors.New("session expired, run: acc login <username>"))
	}
	printIdentity(view.Identity)
	if active := s.c.Nav.Active(); active != panel {
		color.Yellow("%s is not available, showing %s", panel.Title(), active.Title())
	}
	printPanel(os.Stdout, s.c, view.Identity)
	return 0
}

func assembleCmd(args []string) int {
	fs, cm := newFlags("assemble")
	model := fs.Int("model", 0, "aircraft model id")
	wo := fs.String("work-order", "", "work order id")
	_ = fs.Parse(reorderArgs(args))
	return action(cm, nav.AssembleAircraft, func(s *run) actions.Outcome {
		return s.c.Actions.Assemble(s.ctx, actions.AssembleForm{AircraftModel: *model, WorkOrder: optInt(*wo)})
	})
}

func produceCmd(args []string) int {
	fs, cm := newFlags("produce")
	model := fs.Int("model", 0, "compatible aircraft model id")
	_ = fs.Parse(reorderArgs(args))
	return action(cm, nav.ProducePart, func(s *run) actions.Outcome {
		return s.c.Actions.Produce(s.ctx, actions.ProduceForm{AircraftModel: *model})
	})
}

func workOrderCmd(args []string) int {
	fs, cm := newFlags("work-order")
	var (
		id    = fs.String("id", "", "work order id to update")
		model = fs.Int("model", 0, "aircraft model id")
		qty   = fs.Int("qty", 0, "quantity")
		team  = fs.String("team", "", "assembly team id")
		date  = fs.String("date", "", "target completion date (YYYY-MM-DD)")
		notes = fs.String("notes", "", "notes")
	)
	_ = fs.Parse(reorderArgs(args))
	return action(cm, nav.WorkOrders, func(s *run) actions.Outcome {
		return s.c.Actions.SaveWorkOrder(s.ctx, actions.WorkOrderForm{
			ID:            strings.TrimSpace(*id),
			AircraftModel: *model,
			Quantity:      *qty,
			AssignedTeam:  optInt(*team),
			TargetDate:    strings.TrimSpace(*date),
			Notes:         *notes,
		})
	})
}

func cancelCmd(args []string) int {
	fs, cm := newFlags("cancel")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("usage: acc cancel <work-order-id>")
		return 2
	}
	return action(cm, nav.WorkOrders, func(s *run) actions.Outcome {
		return s.c.Actions.CancelWorkOrder(s.ctx, fs.Arg(0))
	})
}

func recycleCmd(args []string) int {
	fs, cm := newFlags("recycle")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 2 {
		fmt.Println("usage: acc recycle part|aircraft <id>")
		return 2
	}
	id := fs.Arg(1)
	switch fs.Arg(0) {
	case "part":
		return action(cm, nav.Parts, func(s *run) actions.Outcome {
			return s.c.Actions.RecyclePart(s.ctx, id)
		})
	case "aircraft":
		return action(cm, nav.Aircraft, func(s *run) actions.Outcome {
			return s.c.Actions.RecycleAircraft(s.ctx, id)
		})
	}
	fmt.Println("usage: acc recycle part|aircraft <id>")
	return 2
}

func personnelCmd(args []string) int {
	fs, cm := newFlags("personnel")
	team := fs.String("team", "", "team id; empty unassigns")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("usage: acc personnel <user-id> [-team <id>]")
		return 2
	}
	return action(cm, nav.Personnel, func(s *run) actions.Outcome {
		return s.c.Actions.SavePersonnel(s.ctx, actions.PersonnelForm{UserID: fs.Arg(0), Team: optInt(*team)})
	})
}

func teamCmd(args []string) int {
	fs, cm := newFlags("team")
	var (
		id       = fs.String("id", "", "team id to update")
		name     = fs.String("name", "", "team name")
		teamType = fs.String("type", "", "WING_TEAM|FUSELAGE_TEAM|TAIL_TEAM|AVIONICS_TEAM|ASSEMBLY_TEAM")
	)
	_ = fs.Parse(reorderArgs(args))
	return action(cm, nav.Teams, func(s *run) actions.Outcome {
		return s.c.Actions.SaveTeam(s.ctx, actions.TeamForm{
			ID:       strings.TrimSpace(*id),
			Name:     strings.TrimSpace(*name),
			TeamType: strings.ToUpper(strings.TrimSpace(*teamType)),
		})
	})
}

func deleteCmd(args []string) int {
	fs, cm := newFlags("delete")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 2 {
		fmt.Println("usage: acc delete personnel|team <id>")
		return 2
	}
	id := fs.Arg(1)
	switch fs.Arg(0) {
	case "personnel":
		return action(cm, nav.Personnel, func(s *run) actions.Outcome {
			return s.c.Actions.DeletePersonnel(s.ctx, id)
		})
	case "team":
		return action(cm, nav.Teams, func(s *run) actions.Outcome {
			return s.c.Actions.DeleteTeam(s.ctx, id)
		})
	}
	fmt.Println("usage: acc delete personnel|team <id>")
	return 2
}

func optInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

// reorderArgs moves flags ahead of positional arguments so both orders parse.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 1 && arg[0] == '-' && arg != "--" {
			flags = append(flags, arg)
			if !strings.Contains(arg, "=") && !isBoolFlag(arg) && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		positional = append(positional, arg)
	}
	return append(flags, positional...)
}

func isBoolFlag(arg string) bool {
	switch strings.TrimLeft(arg, "-") {
	case "yes", "desc":
		return true
	}
	return false
}
