// Package cli is the interactive terminal front end for Chronicle Weaver.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lindalindashu/novel-agent/internal/app/archive"
	"github.com/lindalindashu/novel-agent/internal/app/composition"
	"github.com/lindalindashu/novel-agent/internal/app/present"
	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

// Service is the entry service as seen by the terminal. Both the local
// diary service and the HTTP client satisfy it.
type Service interface {
	domain.EntryService
	Get(ctx context.Context, id domain.EntryID) (*domain.Entry, error)
	Extract(ctx context.Context, text string) (*domain.Extraction, error)
}

type Options struct {
	Username      string
	ListLimit     int
	PreviewLength int
	Colors        bool
	Logger        *slog.Logger
}

const (
	endMarker    = "END"
	welcomeCount = 5
	maxLineBytes = 1 << 20
)

// App drives the menu and the one-shot commands over a single input stream.
type App struct {
	svc  Service
	in   *bufio.Scanner
	out  io.Writer
	p    *Printer
	opts Options
	log  *slog.Logger
}

func NewApp(svc Service, in io.Reader, out, errOut io.Writer, opts Options) *App {
	if opts.ListLimit <= 0 {
		opts.ListLimit = archive.DefaultLimit
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = present.DefaultPreviewLength
	}
	if opts.Logger == nil {
		opts.Logger = observability.Logger()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	return &App{
		svc:  svc,
		in:   scanner,
		out:  out,
		p:    NewPrinter(out, errOut, opts.Colors),
		opts: opts,
		log:  opts.Logger.With("component", "cli"),
	}
}

// Menu runs the interactive loop until the user exits or input ends.
func (a *App) Menu(ctx context.Context) error {
	a.p.Print("\n🎭 Welcome to Chronicle Weaver - AI Ghostwriter")
	a.p.Print("%s", strings.Repeat("=", 50))
	a.p.Print("Transform your conversations into literary diary entries!\n")

	recent, err := a.svc.List(ctx, domain.ListEntriesInput{Username: a.opts.Username, Limit: welcomeCount})
	if err != nil {
		a.log.Warn("could not count recent entries", "error", err)
	} else {
		a.p.Print("📚 You have %d recent entries in your chronicle", len(recent))
	}

	for {
		a.p.Print("\nOptions:")
		a.p.Print("1. Write new diary entry")
		a.p.Print("2. View recent entries")
		a.p.Print("3. Extract entities from text")
		a.p.Print("4. Exit")
		a.p.Prompt("\nChoose an option (1-4): ")

		line, ok := a.readLine()
		if !ok {
			a.p.Print("\n👋 Goodbye!")
			return nil
		}

		var err error
		switch strings.TrimSpace(line) {
		case "1":
			err = a.Write(ctx)
		case "2":
			err = a.Browse(ctx)
		case "3":
			err = a.Extract(ctx)
		case "4":
			a.p.Print("\n👋 Goodbye!")
			return nil
		default:
			a.p.Error("Invalid choice. Please try again.")
		}

		if err != nil {
			a.p.Error("%v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Write composes one entry and runs the review loop until the user accepts
// or clears it. Failed refinements keep the entry for another try.
func (a *App) Write(ctx context.Context) error {
	notes := a.readBlock("\n📝 Enter your notes (type 'END' on a new line when done):")
	if strings.TrimSpace(notes) == "" {
		a.p.Error("No input provided.")
		return nil
	}

	session := composition.New(a.svc,
		composition.WithUsername(a.opts.Username),
		composition.WithLogger(a.log),
	)

	a.p.Info("\n✨ Generating your diary entry with context...\n")
	entry, err := session.Generate(ctx, notes)
	if err != nil {
		return err
	}
	a.printDiary(entry)

	for {
		a.p.Prompt("\n💭 Satisfied with this entry? (yes/no/feedback): ")
		line, ok := a.readLine()
		answer := strings.TrimSpace(line)
		if !ok {
			// the entry is already stored; end of input keeps it
			answer = "yes"
		}

		feedback := answer
		switch strings.ToLower(answer) {
		case "":
			continue
		case "yes", "y":
			accepted, err := session.Accept()
			if err != nil {
				return err
			}
			if accepted != nil {
				a.p.Success("Entry #%d saved to your chronicle!", accepted.ID)
			}
			return nil
		case "clear":
			if err := session.Clear(); err != nil {
				return err
			}
			a.p.Info("Session cleared. Entry #%d stays in your chronicle.", entry.ID)
			return nil
		case "no", "n":
			a.p.Print("\n📝 What should I change?")
			a.p.Prompt("> ")
			line, _ := a.readLine()
			feedback = strings.TrimSpace(line)
			if feedback == "" {
				continue
			}
		}

		a.p.Info("\n✨ Regenerating...\n")
		refined, err := session.Refine(ctx, feedback)
		if err != nil {
			a.p.Error("%v", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		entry = refined
		a.printDiary(entry)
	}
}

// Browse lists recent entries and lets the user read, delete, resize and
// refresh the list. A blank line returns to the caller.
func (a *App) Browse(ctx context.Context) error {
	arch := a.newArchive(a.opts.ListLimit)
	if err := arch.Refresh(ctx); err != nil {
		return err
	}

	for {
		a.renderArchive(arch)
		if len(arch.Entries()) == 0 {
			return nil
		}

		a.p.Prompt("\nEntry id to read, d <id> to delete, l <n> for limit, r to refresh, Enter to go back: ")
		line, ok := a.readLine()
		fields := strings.Fields(line)
		if !ok || len(fields) == 0 {
			return nil
		}

		var err error
		switch strings.ToLower(fields[0]) {
		case "r":
			err = arch.Refresh(ctx)
		case "l":
			err = a.browseLimit(ctx, arch, fields[1:])
		case "d":
			err = a.browseDelete(ctx, arch, fields[1:])
		default:
			err = a.browseRead(arch, fields[0])
		}

		if err != nil {
			a.p.Error("%v", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (a *App) browseLimit(ctx context.Context, arch *archive.Archive, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: l <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("limit must be a number: %q", args[0])
	}
	return arch.SetLimit(ctx, n)
}

func (a *App) browseDelete(ctx context.Context, arch *archive.Archive, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: d <id>")
	}
	id, err := domain.ParseEntryID(args[0])
	if err != nil {
		return err
	}

	err = arch.Delete(ctx, id, a.confirmDelete)
	switch {
	case errors.Is(err, archive.ErrDeleteDeclined):
		a.p.Info("Delete cancelled.")
		return nil
	case err != nil:
		return err
	}
	a.p.Success("Entry #%d deleted.", id)
	return nil
}

func (a *App) browseRead(arch *archive.Archive, arg string) error {
	id, err := domain.ParseEntryID(arg)
	if err != nil {
		return err
	}
	if err := arch.Select(id); err != nil {
		return err
	}
	a.printEntry(arch.Selected())
	arch.Deselect()
	return nil
}

// List prints up to limit recent entries; limit <= 0 uses the configured default.
func (a *App) List(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = a.opts.ListLimit
	}
	arch := a.newArchive(limit)
	if err := arch.Refresh(ctx); err != nil {
		return err
	}
	a.renderArchive(arch)
	return nil
}

func (a *App) Show(ctx context.Context, id domain.EntryID) error {
	entry, err := a.fetch(ctx, id)
	if err != nil {
		return err
	}
	a.printEntry(entry)
	return nil
}

// Delete removes one entry by id. Unless yes is set the user is asked first.
func (a *App) Delete(ctx context.Context, id domain.EntryID, yes bool) error {
	entry, err := a.fetch(ctx, id)
	if err != nil {
		return err
	}

	if !yes && !a.confirmDelete(entry) {
		a.p.Info("Delete cancelled.")
		return nil
	}

	if err := a.svc.Delete(ctx, id); err != nil {
		a.log.Warn("delete failed", "entry_id", id, "error", err)
		return domain.NewFailure(domain.ErrDeletion, "Failed to delete entry", err)
	}
	a.p.Success("Entry #%d deleted.", id)
	return nil
}

// Extract reads a block of text and prints the people, events and feelings found in it.
func (a *App) Extract(ctx context.Context) error {
	text := a.readBlock("\n📊 Enter text to extract entities (type 'END' on a new line when done):")
	if strings.TrimSpace(text) == "" {
		a.p.Error("No input provided.")
		return nil
	}

	a.p.Info("\n🔍 Extracting entities...\n")
	ex, err := a.svc.Extract(ctx, text)
	if err != nil {
		return domain.NewFailure(domain.ErrFetch, "Failed to extract entities", err)
	}
	a.printExtraction(ex)
	return nil
}

func (a *App) newArchive(limit int) *archive.Archive {
	return archive.New(a.svc,
		archive.WithUsername(a.opts.Username),
		archive.WithLimit(limit),
		archive.WithLogger(a.log),
	)
}

func (a *App) fetch(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	entry, err := a.svc.Get(ctx, id)
	if err == nil {
		return entry, nil
	}
	fallback := "Failed to fetch entry"
	if errors.Is(err, domain.ErrNotFound) {
		fallback = "Entry not found"
	}
	return nil, domain.NewFailure(domain.ErrFetch, fallback, err)
}

func (a *App) confirmDelete(entry *domain.Entry) bool {
	a.p.Prompt(fmt.Sprintf("Delete entry #%d? (y/N): ", entry.ID))
	line, ok := a.readLine()
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *App) renderArchive(arch *archive.Archive) {
	entries := arch.Entries()
	if len(entries) == 0 {
		a.p.Print("\n📭 No entries yet. Start writing!")
		return
	}

	a.p.Print("\n📖 Your Recent Entries (%d):\n", len(entries))
	table := NewTable(a.out, []string{"ID", "DATE", "PREVIEW"})
	for _, e := range entries {
		table.AddRow([]string{
			a.p.Bold(e.ID.String()),
			a.p.Dim(present.FormatDate(e.CreatedAt)),
			present.Preview(e.Diary, a.opts.PreviewLength),
		})
	}
	if err := table.Render(); err != nil {
		a.log.Warn("table render failed", "error", err)
	}
}

func (a *App) printEntry(entry *domain.Entry) {
	a.p.Header(present.Heading(int64(entry.ID), entry.CreatedAt))
	a.printDiary(entry)
	a.p.Print("\n%s", a.p.Dim("Notes:"))
	a.p.Print("%s", entry.RawInput)
}

func (a *App) printDiary(entry *domain.Entry) {
	a.p.Print("---\n%s\n---", entry.Diary)
}

func (a *App) printExtraction(ex *domain.Extraction) {
	if len(ex.Entities)+len(ex.Events)+len(ex.Emotions) == 0 {
		a.p.Print("---\n%s\n---", ex.Raw)
		return
	}

	if len(ex.Entities) > 0 {
		a.p.Print("%s", a.p.Bold("👥 Entities"))
		for _, e := range ex.Entities {
			a.p.Print("  - %s (%s): %s", e.Name, e.Type, e.Role)
		}
	}
	if len(ex.Events) > 0 {
		a.p.Print("%s", a.p.Bold("📅 Events"))
		for _, e := range ex.Events {
			a.p.Print("  - %s [%s]: %s", e.Action, e.Time, e.Significance)
		}
	}
	if len(ex.Emotions) > 0 {
		a.p.Print("%s", a.p.Bold("💗 Emotions"))
		for _, e := range ex.Emotions {
			a.p.Print("  - %s (%s): %s", e.Feeling, e.Intensity, e.Trigger)
		}
	}
}

func (a *App) readLine() (string, bool) {
	if !a.in.Scan() {
		return "", false
	}
	return a.in.Text(), true
}

// readBlock reads lines until one equal to END (any case) or end of input.
func (a *App) readBlock(prompt string) string {
	a.p.Print("%s", prompt)
	var lines []string
	for {
		line, ok := a.readLine()
		if !ok || strings.EqualFold(strings.TrimSpace(line), endMarker) {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
