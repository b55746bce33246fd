package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"ironwall/pkg/chat"
	"ironwall/pkg/models"
	"ironwall/pkg/routeguard"
)

// routes maps navigable locations to whether they require an admin session.
// Public locations are absent; the guard only runs for protected views.
var routes = map[string]bool{
	routeguard.DashboardPath: false,
	"/profile":               false,
	"/admin":                 true,
}

// Console is a line-oriented front end over the app, standing in for the
// rendered views. Each command exercises the same operations a UI would.
type Console struct {
	app *App
	in  io.Reader
	out io.Writer

	location string
}

// NewConsole builds a console reading commands from in.
func NewConsole(a *App, in io.Reader, out io.Writer) *Console {
	return &Console{app: a, in: in, out: out, location: routeguard.LoginPath}
}

// Run processes commands until EOF, "quit", or context cancellation. Input
// is read on its own goroutine so cancellation takes effect even while
// blocked waiting for the next line.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "ironwall console; type 'help' for commands")

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case raw := <-lines:
			line := strings.TrimSpace(raw)
			if line == "" {
				c.prompt()
				continue
			}
			fields := strings.Fields(line)
			cmd, args := fields[0], fields[1:]
			if cmd == "quit" || cmd == "exit" {
				return nil
			}
			c.dispatch(ctx, cmd, args, line)
			c.prompt()
		}
	}
}

func (c *Console) prompt() {
	sess := c.app.Session.Current()
	who := "anonymous"
	if sess.Authenticated() {
		who = sess.User.Username
	}
	fmt.Fprintf(c.out, "[%s %s]> ", who, c.location)
}

func (c *Console) dispatch(ctx context.Context, cmd string, args []string, line string) {
	switch cmd {
	case "help":
		c.help()
	case "login":
		if len(args) != 2 {
			fmt.Fprintln(c.out, "usage: login <email> <password>")
			return
		}
		if err := c.app.Session.Login(ctx, args[0], args[1]); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return
		}
		// A successful login returns to the view that triggered the redirect.
		c.location = routeguard.DashboardPath
		fmt.Fprintln(c.out, "logged in")
	case "register":
		if len(args) != 3 {
			fmt.Fprintln(c.out, "usage: register <username> <email> <password>")
			return
		}
		if err := c.app.Session.Register(ctx, args[0], args[1], args[2]); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return
		}
		fmt.Fprintln(c.out, "verification code sent; use 'verify <email> <otp>'")
	case "verify":
		if len(args) != 2 {
			fmt.Fprintln(c.out, "usage: verify <email> <otp>")
			return
		}
		if err := c.app.Session.VerifyOTP(ctx, args[0], args[1]); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return
		}
		c.location = routeguard.DashboardPath
		fmt.Fprintln(c.out, "verified and logged in")
	case "logout":
		_ = c.app.Session.Logout()
		c.location = routeguard.LoginPath
		fmt.Fprintln(c.out, "logged out")
	case "whoami":
		c.whoami()
	case "refresh":
		if err := c.app.Session.RefreshProfile(ctx); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return
		}
		c.whoami()
	case "goto":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "usage: goto <path>")
			return
		}
		c.navigate(args[0])
	case "send":
		text := strings.TrimSpace(strings.TrimPrefix(line, "send"))
		if err := c.app.Conv.SendMessage(ctx, text); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return
		}
		c.printTail(2)
	case "history":
		for _, m := range c.app.Conv.Messages() {
			fmt.Fprintf(c.out, "%-9s %s\n", m.Role, m.Text)
		}
	case "clear":
		c.app.Conv.ClearHistory()
		c.printTail(1)
	case "open":
		c.app.Conv.Open()
		c.showVisibility()
	case "close":
		c.app.Conv.Close()
		c.showVisibility()
	case "minimize":
		c.app.Conv.Minimize()
		c.showVisibility()
	case "maximize":
		c.app.Conv.Maximize()
		c.showVisibility()
	default:
		fmt.Fprintf(c.out, "unknown command %q; type 'help'\n", cmd)
	}
}

// navigate runs the route guard the way a rendered view would on entry.
func (c *Console) navigate(path string) {
	requireAdmin, protected := routes[path]
	if !protected && path != routeguard.LoginPath {
		fmt.Fprintf(c.out, "no such view %q\n", path)
		return
	}
	if path == routeguard.LoginPath {
		c.location = path
		return
	}
	d := routeguard.Decide(c.app.Session.Current(), requireAdmin, path)
	if d.Render {
		c.location = path
		return
	}
	c.location = d.Target
	if d.From != "" {
		fmt.Fprintf(c.out, "redirected to %s (will return to %s after login)\n", d.Target, d.From)
		return
	}
	fmt.Fprintf(c.out, "redirected to %s\n", d.Target)
}

func (c *Console) whoami() {
	sess := c.app.Session.Current()
	if !sess.Authenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return
	}
	fmt.Fprintf(c.out, "%s <%s> role=%s\n", sess.User.Username, sess.User.Email, sess.User.Role)
}

func (c *Console) showVisibility() {
	fmt.Fprintln(c.out, "assistant panel:", c.app.Conv.Visibility())
}

func (c *Console) printTail(n int) {
	msgs := c.app.Conv.Messages()
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	for _, m := range msgs {
		prefix := "you"
		if m.Role == models.MessageRoleAssistant {
			prefix = "assistant"
		}
		fmt.Fprintf(c.out, "%-9s %s\n", prefix, m.Text)
	}
	if c.app.Conv.Visibility() == chat.Closed {
		// The panel being closed does not stop the conversation advancing.
		fmt.Fprintln(c.out, "(assistant panel is closed; 'open' to show it)")
	}
}

func (c *Console) help() {
	fmt.Fprint(c.out, `commands:
  login <email> <password>        establish a session
  register <user> <email> <pass>  start signup (OTP delivered out of band)
  verify <email> <otp>            finish signup
  logout                          clear the session everywhere
  whoami                          show the current session
  refresh                         re-fetch the profile for this token
  goto <path>                     navigate (/login /dashboard /profile /admin)
  send <text>                     message the assistant
  history                         print the conversation
  clear                           reset the conversation
  open | close | minimize | maximize   assistant panel state
  quit
`)
}
