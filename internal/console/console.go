package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"itemdocs/internal/logging"
	"itemdocs/internal/model"
	"itemdocs/internal/repository"
	"itemdocs/internal/service"
)

const menu = `
1) Insert item
2) Update item
3) Delete item
4) Show item
5) Quit
> `

// errInputClosed ends the loop when the input reaches EOF mid-prompt.
var errInputClosed = errors.New("input closed")

// errAborted marks an operation the console already explained to the user.
var errAborted = errors.New("aborted")

// Releaser drops the store handle after each operation.
type Releaser interface {
	Release()
}

// Console is the interactive item menu. It is not safe for concurrent use.
type Console struct {
	in    io.Reader
	lines <-chan inputLine
	out   io.Writer
	svc   service.ItemService
	refs  service.ReferenceValidator
	store Releaser
	log   *slog.Logger
}

// New builds a console reading commands from in and writing to out.
func New(in io.Reader, out io.Writer, svc service.ItemService, refs service.ReferenceValidator, store Releaser, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		in:    in,
		out:   out,
		svc:   svc,
		refs:  refs,
		store: store,
		log:   log,
	}
}

// Run shows the menu until the user quits, the input ends or ctx is done.
// Failed operations are reported and the loop continues. Cancelling ctx
// returns ctx.Err() even while a prompt is waiting for input.
func (c *Console) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	c.lines = readLines(c.in, stop)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, menu)
		choice, err := c.next(ctx)
		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		var op func(context.Context) error
		switch choice {
		case "1":
			op = c.insert
		case "2":
			op = c.update
		case "3":
			op = c.remove
		case "4":
			op = c.show
		case "5":
			fmt.Fprintln(c.out, "Bye.")
			return nil
		default:
			fmt.Fprintln(c.out, "Unknown option.")
			continue
		}

		err = c.run(ctx, op)
		switch {
		case errors.Is(err, errInputClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}
	}
}

// run executes one menu operation under its own operation id and releases
// the store handle afterwards.
func (c *Console) run(ctx context.Context, op func(context.Context) error) error {
	opID := uuid.NewString()
	ctx = logging.ContextWithRequestID(ctx, opID)
	defer c.store.Release()

	err := op(ctx)
	switch {
	case err == nil, errors.Is(err, errAborted), errors.Is(err, errInputClosed), ctx.Err() != nil:
	default:
		c.log.DebugContext(ctx, "console operation failed", "error", err)
		c.report(err)
	}
	return err
}

func (c *Console) insert(ctx context.Context) error {
	id, err := c.prompt(ctx, "Id: ")
	if err != nil {
		return err
	}
	if id == "" {
		return service.ErrIDRequired
	}
	site, err := c.prompt(ctx, "Site id: ")
	if err != nil {
		return err
	}
	if !c.refs.ValidateSite(ctx, site) {
		return c.abort("Invalid site %q.", site)
	}
	category, err := c.prompt(ctx, "Category id: ")
	if err != nil {
		return err
	}
	if !c.refs.ValidateCategory(ctx, category) {
		return c.abort("Invalid category %q.", category)
	}
	title, err := c.prompt(ctx, "Title: ")
	if err != nil {
		return err
	}
	raw, err := c.prompt(ctx, "Price: ")
	if err != nil {
		return err
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return c.abort("Invalid price %q.", raw)
	}

	item, err := c.svc.Create(ctx, &model.Item{
		ID:         id,
		SiteID:     site,
		CategoryID: category,
		Title:      title,
		Price:      price,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Item %s saved.\n", item.ID)
	return nil
}

func (c *Console) update(ctx context.Context) error {
	id, err := c.prompt(ctx, "Id: ")
	if err != nil {
		return err
	}
	current, err := c.svc.Get(ctx, id)
	if err != nil {
		return err
	}

	var patch model.ItemPatch
	site, err := c.promptKeep(ctx, "Site id", current.SiteID)
	if err != nil {
		return err
	}
	if site != current.SiteID {
		if !c.refs.ValidateSite(ctx, site) {
			return c.abort("Invalid site %q.", site)
		}
		patch.SiteID = &site
	}
	category, err := c.promptKeep(ctx, "Category id", current.CategoryID)
	if err != nil {
		return err
	}
	if category != current.CategoryID {
		if !c.refs.ValidateCategory(ctx, category) {
			return c.abort("Invalid category %q.", category)
		}
		patch.CategoryID = &category
	}
	title, err := c.promptKeep(ctx, "Title", current.Title)
	if err != nil {
		return err
	}
	if title != current.Title {
		patch.Title = &title
	}
	raw, err := c.promptKeep(ctx, "Price", strconv.FormatInt(current.Price, 10))
	if err != nil {
		return err
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return c.abort("Invalid price %q.", raw)
	}
	if price != current.Price {
		patch.Price = &price
	}

	if patch.IsEmpty() {
		fmt.Fprintln(c.out, "Nothing to update.")
		return nil
	}
	if _, err := c.svc.Update(ctx, id, patch); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Item %s updated.\n", id)
	return nil
}

func (c *Console) remove(ctx context.Context) error {
	id, err := c.prompt(ctx, "Id: ")
	if err != nil {
		return err
	}
	item, err := c.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.svc.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Item %s (%s) deleted.\n", item.ID, item.Title)
	return nil
}

func (c *Console) show(ctx context.Context) error {
	id, err := c.prompt(ctx, "Id: ")
	if err != nil {
		return err
	}
	item, err := c.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	c.print(item)
	return nil
}

func (c *Console) print(item *model.Item) {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Id:\t%s\n", item.ID)
	fmt.Fprintf(tw, "Site:\t%s\n", item.SiteID)
	fmt.Fprintf(tw, "Category:\t%s\n", item.CategoryID)
	fmt.Fprintf(tw, "Title:\t%s\n", item.Title)
	if item.Subtitle != "" {
		fmt.Fprintf(tw, "Subtitle:\t%s\n", item.Subtitle)
	}
	fmt.Fprintf(tw, "Price:\t%d %s\n", item.Price, item.CurrencyID)
	fmt.Fprintf(tw, "Quantity:\t%d\n", item.AvailableQuantity)
	if item.Status != "" {
		fmt.Fprintf(tw, "Status:\t%s\n", item.Status)
	}
	if !item.LastUpdated.IsZero() {
		fmt.Fprintf(tw, "Last updated:\t%s\n", item.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	}
	tw.Flush()
}

// report prints a message that tells validation, missing items and store
// outages apart.
func (c *Console) report(err error) {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrIDRequired):
		fmt.Fprintln(c.out, "An id is required.")
	case errors.As(err, &ve):
		fmt.Fprintf(c.out, "Validation failed: %v.\n", ve)
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintln(c.out, "Item not found.")
	case repository.IsConnection(err):
		fmt.Fprintf(c.out, "Document store unavailable: %v\n", err)
	default:
		fmt.Fprintf(c.out, "Operation failed: %v\n", err)
	}
}

func (c *Console) abort(format string, args ...any) error {
	fmt.Fprintf(c.out, format+" Operation aborted.\n", args...)
	return errAborted
}

type inputLine struct {
	text string
	err  error
}

// readLines scans r on its own goroutine so a blocked read never holds up
// cancellation. The channel is closed at EOF; a read error is sent first.
func readLines(r io.Reader, stop <-chan struct{}) <-chan inputLine {
	out := make(chan inputLine)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- inputLine{text: sc.Text()}:
			case <-stop:
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case out <- inputLine{err: err}:
			case <-stop:
			}
		}
	}()
	return out
}

// next waits for the next input line or for ctx to be done.
func (c *Console) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", errInputClosed
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

func (c *Console) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(c.out, label)
	return c.next(ctx)
}

// promptKeep shows the stored value; an empty answer keeps it.
func (c *Console) promptKeep(ctx context.Context, label, current string) (string, error) {
	v, err := c.prompt(ctx, fmt.Sprintf("%s [%s]: ", label, current))
	if err != nil || v == "" {
		return current, err
	}
	return v, nil
}
