// Command taskctl is a terminal client for the taskify API.
//
// Usage:
//
//	taskctl login <email>            read password from stdin, cache session
//	taskctl logout                   revoke the cached session
//	taskctl list [-status s] [-category c]
//	taskctl add <title> [-priority p] [-category c] [-deadline RFC3339] [-desc text]
//	taskctl done <number|id>         toggle completion
//	taskctl rm <number|id>           delete
//
// The server address comes from TASKIFY_URL (default http://localhost:8080).
// Session tokens are cached under $XDG_CONFIG_HOME/taskctl (or
// ~/.config/taskctl).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"taskify/client"
)

// Exit codes.
const (
	exitSuccess = 0
	exitUser    = 1
	exitAuth    = 2
	exitBackend = 3
)

const (
	appName     = "taskctl"
	sessionFile = "session.json"
	defaultURL  = "http://localhost:8080"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "login":
		return cmdLogin(ctx, rest, out, errOut)
	case "logout":
		return cmdLogout(ctx, out, errOut)
	case "list":
		return cmdList(ctx, rest, out, errOut)
	case "add":
		return cmdAdd(ctx, rest, out, errOut)
	case "done":
		return cmdDone(ctx, rest, out, errOut)
	case "rm":
		return cmdRm(ctx, rest, out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return exitSuccess
	default:
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmd)
		return exitUser
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: taskctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  login <email>    sign in and cache the session")
	fmt.Fprintln(w, "  logout           revoke the cached session")
	fmt.Fprintln(w, "  list             show tasks (-status all|pending|completed, -category name)")
	fmt.Fprintln(w, "  add <title>      create a task (-priority, -category, -deadline, -desc)")
	fmt.Fprintln(w, "  done <n|id>      toggle a task's completion")
	fmt.Fprintln(w, "  rm <n|id>        delete a task")
}

func serverURL() string {
	if url := os.Getenv("TASKIFY_URL"); url != "" {
		return url
	}
	return defaultURL
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".config", appName)
}

// savedSession is the on-disk session cache.
type savedSession struct {
	BaseURL      string    `json:"base_url"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

func sessionPath() string {
	return filepath.Join(configDir(), sessionFile)
}

func saveSession(sess *client.Session, baseURL string) error {
	access, refresh, expiry := sess.Tokens()
	data, err := json.MarshalIndent(savedSession{
		BaseURL:      baseURL,
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       expiry,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(sessionPath(), data, 0o600)
}

func loadSession() (*client.Session, error) {
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		return nil, fmt.Errorf("not logged in (run: taskctl login <email>)")
	}
	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("corrupt session cache (run: taskctl login <email>)")
	}
	return client.NewSession(saved.BaseURL, saved.AccessToken, saved.RefreshToken, saved.Expiry), nil
}

func cmdLogin(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: usage: taskctl login <email>")
		return exitUser
	}
	email := args[0]

	password, err := readPassword(out)
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to read password: %v\n", err)
		return exitUser
	}

	baseURL := serverURL()
	sess, err := client.Login(ctx, baseURL, email, password)
	if err != nil {
		if client.IsUnauthorized(err) {
			fmt.Fprintln(errOut, "error: invalid credentials")
			return exitAuth
		}
		fmt.Fprintf(errOut, "error: login failed: %v\n", err)
		return exitBackend
	}

	if err := saveSession(sess, baseURL); err != nil {
		fmt.Fprintf(errOut, "error: failed to save session: %v\n", err)
		return exitAuth
	}

	fmt.Fprintf(out, "Logged in as %s\n", email)
	return exitSuccess
}

// readPassword prompts without echoing when stdin is a terminal; piped
// input is read as a line.
func readPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdLogout(ctx context.Context, out, errOut io.Writer) int {
	sess, err := loadSession()
	if err == nil {
		// Best effort: the cache is removed even if revocation fails.
		if err := sess.Logout(ctx); err != nil {
			fmt.Fprintf(errOut, "warning: failed to revoke session: %v\n", err)
		}
	}
	if err := os.Remove(sessionPath()); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(errOut, "error: failed to remove session cache: %v\n", err)
		return exitAuth
	}
	fmt.Fprintln(out, "Logged out")
	return exitSuccess
}

func cmdList(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	status := fs.String("status", client.FilterAll, "status filter: all, pending, completed")
	category := fs.String("category", client.FilterAll, "category filter")
	if err := fs.Parse(args); err != nil {
		return exitUser
	}

	switch *status {
	case client.FilterAll, client.FilterPending, client.FilterCompleted:
	default:
		fmt.Fprintf(errOut, "error: invalid status filter: %s\n", *status)
		return exitUser
	}

	sess, err := loadSession()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitAuth
	}

	store := client.NewStore(sess.Gateway())
	store.Load(ctx)
	if err := store.LoadErr(); err != nil {
		return reportAPIError(errOut, "failed to fetch tasks", err)
	}
	store.SetStatusFilter(*status)
	store.SetCategoryFilter(*category)

	tasks := store.Filtered()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return exitSuccess
	}

	for i, task := range tasks {
		printTask(out, i+1, task)
	}
	return exitSuccess
}

// printTask writes one task line: "{N:>4}  [x] TITLE  (priority, category, due ...)".
func printTask(w io.Writer, num int, task client.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}

	var attrs []string
	if task.Priority != "" && task.Priority != client.PriorityMedium {
		attrs = append(attrs, task.Priority)
	}
	if task.Category != "" {
		attrs = append(attrs, task.Category)
	}
	if task.Deadline != nil {
		attrs = append(attrs, "due "+task.Deadline.Local().Format("2006-01-02"))
	}

	suffix := ""
	if len(attrs) > 0 {
		suffix = "  (" + strings.Join(attrs, ", ") + ")"
	}
	fmt.Fprintf(w, "%4d  [%s] %s%s\n", num, mark, task.Title, suffix)
}

func cmdAdd(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(errOut)
	priority := fs.String("priority", "", "priority: low, medium, high")
	category := fs.String("category", "", "category")
	deadline := fs.String("deadline", "", "deadline (RFC3339, e.g. 2026-09-15T12:00:00Z)")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return exitUser
	}

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: usage: taskctl add <title> [flags]")
		return exitUser
	}

	input := client.TaskInput{
		Title:       title,
		Description: *desc,
		Priority:    *priority,
		Category:    *category,
	}
	if *deadline != "" {
		parsed, err := time.Parse(time.RFC3339, *deadline)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid deadline: %v\n", err)
			return exitUser
		}
		input.Deadline = &parsed
	}

	sess, err := loadSession()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitAuth
	}

	store := client.NewStore(sess.Gateway())
	task, err := store.Add(ctx, input)
	if err != nil {
		return reportAPIError(errOut, "failed to create task", err)
	}

	fmt.Fprintf(out, "Created %q (%s)\n", task.Title, task.ID)
	return exitSuccess
}

func cmdDone(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: usage: taskctl done <number|id>")
		return exitUser
	}

	sess, err := loadSession()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitAuth
	}

	store := client.NewStore(sess.Gateway())
	store.Load(ctx)
	if err := store.LoadErr(); err != nil {
		return reportAPIError(errOut, "failed to fetch tasks", err)
	}

	id, code := resolveTask(store, args[0], errOut)
	if code != exitSuccess {
		return code
	}

	task, err := store.ToggleCompletion(ctx, id)
	if err != nil {
		return reportAPIError(errOut, "failed to update task", err)
	}

	if task.Completed {
		fmt.Fprintf(out, "Completed %q\n", task.Title)
	} else {
		fmt.Fprintf(out, "Reopened %q\n", task.Title)
	}
	return exitSuccess
}

func cmdRm(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: usage: taskctl rm <number|id>")
		return exitUser
	}

	sess, err := loadSession()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitAuth
	}

	store := client.NewStore(sess.Gateway())
	store.Load(ctx)
	if err := store.LoadErr(); err != nil {
		return reportAPIError(errOut, "failed to fetch tasks", err)
	}

	id, code := resolveTask(store, args[0], errOut)
	if code != exitSuccess {
		return code
	}

	if err := store.Remove(ctx, id); err != nil {
		return reportAPIError(errOut, "failed to delete task", err)
	}

	fmt.Fprintln(out, "Deleted")
	return exitSuccess
}

// resolveTask maps a 1-based list position or a full task id onto a
// task id from the loaded store.
func resolveTask(store *client.Store, ref string, errOut io.Writer) (string, int) {
	tasks := store.Tasks()

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(tasks) {
			fmt.Fprintf(errOut, "error: no task number %d (have %d)\n", n, len(tasks))
			return "", exitUser
		}
		return tasks[n-1].ID, exitSuccess
	}

	for _, task := range tasks {
		if task.ID == ref {
			return task.ID, exitSuccess
		}
	}
	fmt.Fprintf(errOut, "error: task not found: %s\n", ref)
	return "", exitUser
}

func reportAPIError(errOut io.Writer, what string, err error) int {
	if client.IsUnauthorized(err) {
		fmt.Fprintln(errOut, "error: session expired (run: taskctl login <email>)")
		return exitAuth
	}
	if client.IsNotFound(err) {
		fmt.Fprintln(errOut, "error: task not found")
		return exitUser
	}
	fmt.Fprintf(errOut, "error: %s: %v\n", what, err)
	return exitBackend
}
