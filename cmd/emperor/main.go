// Package main provides the Emperor command-line client. Every command
// works offline against the local library; commands that change state
// fire a best-effort sync trigger when a server is configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/emperorapp/emperor/internal/clip"
	"github.com/emperorapp/emperor/internal/config"
	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/library"
	"github.com/emperorapp/emperor/internal/local"
	"github.com/emperorapp/emperor/internal/logger"
	"github.com/emperorapp/emperor/internal/sync"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "emperor: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "add":
		err = app.cmdAdd(args)
	case "ls":
		err = app.cmdList(args)
	case "books":
		err = app.cmdBooks(args)
	case "mv":
		err = app.cmdMove(args)
	case "pin":
		err = app.cmdPin(args)
	case "rm":
		err = app.cmdRemove(args)
	case "sync":
		err = app.cmdSync(args)
	case "status":
		err = app.cmdStatus(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "emperor: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "emperor: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: emperor <command> [arguments]

Commands:
  add <url> [-b book-id] [-t tag,tag] [-n]   save a page (-n skips clipping)
  ls [-b book-id] [-t tag] [-p]              list pages
  books                                      list books as a tree
  mv <id> <dest-book-id>                     move a page or book ("" = root)
  pin <page-id>                              toggle a page's pin
  rm <id>                                    delete a page or book
  sync                                       sync with the configured server
  status                                     show library and sync status
`)
}

// app bundles the open library with everything a command needs.
type app struct {
	cfg   *config.ClientConfig
	log   *logger.Logger
	store *local.Store
	lib   *library.Library
}

func openApp() (*app, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Level:  logger.ParseLevel(cfg.Logger.Level),
	})

	store, err := local.Open(cfg.Data.Path, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open library at %s: %w", cfg.Data.Path, err)
	}

	lib := library.FromSnapshot(store.LoadSnapshot(), log.Logger)

	return &app{cfg: cfg, log: log, store: store, lib: lib}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close library", "error", err)
	}
}

// save persists the library, then fires a sync trigger if a server is
// configured. A failed sync is reported as status, not as a command
// failure: the local write already succeeded.
func (a *app) save() error {
	if err := a.store.SaveSnapshot(a.lib.Snapshot()); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	if a.cfg.Sync.ServerURL == "" {
		return nil
	}
	if err := a.orchestrator().TrySync(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "sync deferred: %v\n", err)
	}
	return nil
}

func (a *app) orchestrator() *sync.Orchestrator {
	client := sync.NewClient(sync.ClientConfig{
		BaseURL: a.cfg.Sync.ServerURL,
		Token:   a.cfg.Sync.Token,
		Timeout: a.cfg.Sync.Timeout,
		Logger:  a.log.Logger,
	})
	return sync.NewOrchestrator(a.lib, a.store, client, a.log.Logger)
}

func (a *app) cmdAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	bookID := fs.String("b", "", "book to file the page under")
	tags := fs.String("t", "", "comma-separated tags")
	noClip := fs.Bool("n", false, "save the bare URL without fetching the page")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: add <url> [-b book-id] [-t tag,tag] [-n]")
	}
	url := fs.Arg(0)

	draft := library.PageDraft{URL: url, BookID: *bookID}
	for _, label := range strings.Split(*tags, ",") {
		if label = strings.TrimSpace(label); label != "" {
			draft.Tags = append(draft.Tags, domain.NewUserTag(label))
		}
	}

	if !*noClip {
		// A failed clip degrades to a bare-URL page, never a failed add.
		result, err := clip.New(a.log.Logger).Clip(context.Background(), url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "clip failed, saving bare URL: %v\n", err)
		} else {
			draft.Title = result.Title
			draft.Description = result.Description
			draft.Content = result.Content
		}
	}

	page, err := a.lib.CreatePage(draft)
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}

	fmt.Printf("added %s  %s\n", page.ID, page.Title)
	return nil
}

func (a *app) cmdList(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	bookID := fs.String("b", "", "list pages in this book")
	tag := fs.String("t", "", "list pages carrying this tag")
	pinned := fs.Bool("p", false, "list pinned pages")
	fs.Parse(args)

	var pages []*domain.Page
	var err error
	switch {
	case *pinned:
		pages = a.lib.PinnedPages()
	case *tag != "":
		pages = a.lib.PagesByTag(*tag)
	case *bookID != "":
		pages, err = a.lib.PagesByBook(*bookID)
		if err != nil {
			return err
		}
	default:
		pages = a.lib.RootPages()
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, page := range pages {
		marker := " "
		if page.Pinned {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\n", page.ID, marker, page.Title, page.URL, tagLabels(page.Tags))
	}
	return w.Flush()
}

func tagLabels(tags []domain.Tag) string {
	labels := make([]string, len(tags))
	for i, t := range tags {
		labels[i] = t.Label
	}
	return strings.Join(labels, ",")
}

func (a *app) cmdBooks(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: books")
	}
	a.printBookTree("", 0)
	return nil
}

func (a *app) printBookTree(parentID string, depth int) {
	for _, book := range a.lib.BooksByParent(parentID) {
		fmt.Printf("%s%s  %s (%d pages)\n", strings.Repeat("  ", depth), book.ID, book.Name, len(book.PageIDs))
		a.printBookTree(book.ID, depth+1)
	}
}

func (a *app) cmdMove(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf(`usage: mv <id> <dest-book-id> ("" moves to the root)`)
	}
	id, dest := args[0], args[1]

	var err error
	if strings.HasPrefix(id, "book") {
		err = a.lib.MoveBook(id, dest)
	} else {
		err = a.lib.MovePage(id, dest)
	}
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}

	fmt.Printf("moved %s\n", id)
	return nil
}

func (a *app) cmdPin(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pin <page-id>")
	}
	page, err := a.lib.Page(args[0])
	if err != nil {
		return err
	}
	pinned := !page.Pinned
	if err := a.lib.SetPinned(page.ID, pinned); err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}

	if pinned {
		fmt.Printf("pinned %s\n", page.ID)
	} else {
		fmt.Printf("unpinned %s\n", page.ID)
	}
	return nil
}

func (a *app) cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <id>")
	}
	id := args[0]

	var err error
	if strings.HasPrefix(id, "book") {
		err = a.lib.DeleteBook(id)
	} else {
		err = a.lib.DeletePage(id)
	}
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}

	fmt.Printf("removed %s\n", id)
	return nil
}

func (a *app) cmdSync(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: sync")
	}
	if a.cfg.Sync.ServerURL == "" {
		return fmt.Errorf("no sync server configured (set EMPEROR_SERVER_URL)")
	}

	o := a.orchestrator()
	if err := o.TrySync(context.Background()); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	status := o.Status()
	fmt.Printf("synced: pushed %d, pulled %d, deleted %d\n", status.Pushed, status.Pulled, status.Deleted)
	return nil
}

func (a *app) cmdStatus(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: status")
	}

	books, pages := a.lib.Counts()
	fmt.Printf("library: %d books, %d pages\n", books, pages)
	fmt.Printf("pending: %d books, %d pages\n", len(a.lib.DirtyBooks()), len(a.lib.DirtyPages()))

	if a.cfg.Sync.ServerURL == "" {
		fmt.Println("server: not configured (offline)")
		return nil
	}
	fmt.Printf("server: %s\n", a.cfg.Sync.ServerURL)

	if at := a.store.LastSyncAt(); at != nil {
		fmt.Printf("last sync: %s\n", at.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("last sync: never")
	}
	return nil
}
