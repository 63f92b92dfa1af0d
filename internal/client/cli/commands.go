package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/common"
)

// getSimpleText, getPassword and getFields are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getFields     = GetFields
)

func (a *App) credentials() (string, string, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(password)
	return userName, string(password), nil
}

// Register creates an account and logs in with it.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	p, err := a.auth.Register(ctx, userName, password)
	if err != nil {
		return explain(err)
	}
	a.loggedIn(p)
	return nil
}

// Login authenticates against the API and unlocks the local store.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	p, err := a.auth.Login(ctx, userName, password)
	if err != nil {
		return explain(err)
	}
	a.loggedIn(p)
	return nil
}

func (a *App) loggedIn(p *models.Profile) {
	a.setUser(p.Username)
	fmt.Fprintln(a.out, "Success!")
	a.printNotice()
}

// Logout forgets the key and the session bundle.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.setUser("")
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Notice prints the pending store-reset notice, if any.
func (a *App) Notice(context.Context) error {
	if !a.printNotice() {
		fmt.Fprintln(a.out, "No notices")
	}
	return nil
}

func (a *App) printNotice() bool {
	n, ok := a.notices.TakeNotice()
	if !ok {
		return false
	}
	fmt.Fprintf(a.out, "NOTICE (%s): %s\n", n.At.Format("2006-01-02 15:04:05"), n.Message)
	for _, p := range n.Removed {
		fmt.Fprintln(a.out, "  removed", p)
	}
	return true
}

func (a *App) Add(ctx context.Context, collection string) error {
	fields, err := getFields(a.reader, a.out)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return errors.New("no fields entered")
	}
	d, err := a.docs.Add(ctx, collection, fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Added", d.ID)
	return nil
}

func (a *App) Get(ctx context.Context, collection, id string) error {
	d, err := a.docs.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	return a.printDocument(d)
}

func (a *App) List(ctx context.Context, collection string) error {
	docs, err := a.docs.List(ctx, collection)
	if err != nil {
		return err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt.Before(docs[j].UpdatedAt) })
	for _, d := range docs {
		if err := a.printDocument(d); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "%d document(s)\n", len(docs))
	return nil
}

func (a *App) Update(ctx context.Context, collection, id string) error {
	changes, err := getFields(a.reader, a.out)
	if err != nil {
		return err
	}
	if err := a.docs.Update(ctx, collection, id, changes); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Updated", id)
	return nil
}

func (a *App) Delete(ctx context.Context, collection, id string) error {
	if err := a.docs.Delete(ctx, collection, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

func (a *App) Push(ctx context.Context, collection string) error {
	n, err := a.docs.Push(ctx, collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pushed %d document(s)\n", n)
	return nil
}

func (a *App) Pull(ctx context.Context, collection string) error {
	n, err := a.docs.Pull(ctx, collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pulled %d document(s)\n", n)
	return nil
}

func (a *App) printDocument(d models.Document) error {
	body, err := json.MarshalIndent(d.Fields, "  ", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  %s\n  %s\n", d.ID, d.UpdatedAt.Local().Format("2006-01-02 15:04"), body)
	return nil
}

// explain maps service errors to what the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return errors.New("wrong username or password")
	case errors.Is(err, common.ErrorConflict):
		return errors.New("username is taken")
	case errors.Is(err, common.ErrUnavailable):
		return errors.New("server unavailable, try again later")
	case errors.Is(err, common.ErrPlatformUnsupported):
		return fmt.Errorf("cannot run here: %w", err)
	default:
		return err
	}
}
