package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/sigilosec/sigilo/internal/common"
	"github.com/sigilosec/sigilo/internal/models"
	"github.com/sigilosec/sigilo/internal/services"
)

// WriteMessage walks the user through picking a recipient, entering a body,
// and entering the shared secret key, then sends the encrypted message.
func (a *App) WriteMessage(ctx context.Context) error {
	users, err := a.userService.AvailableUsers(ctx, a.currentUser)
	if err != nil {
		fmt.Fprintf(a.out, "Could not list users: %v\n", err)
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No other users registered yet.")
		return nil
	}

	fmt.Fprintln(a.out, "\nRecipients:")
	for i, u := range users {
		fmt.Fprintf(a.out, "  %d) %s\n", i+1, u.Handle)
	}

	choice, err := GetSimpleText(a.reader, "Choose a recipient (0 to cancel)", a.out)
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 0 || idx > len(users) {
		fmt.Fprintln(a.out, "Invalid choice.")
		return nil
	}
	if idx == 0 {
		return nil
	}
	recipient := users[idx-1].Handle

	body, err := GetMultiline(a.reader, fmt.Sprintf("Message to %s (at least %d characters)", recipient, services.MinBodyLength), a.out)
	if err != nil {
		return err
	}

	secret, err := GetSecretKey("Secret key (agreed with the recipient, never sent)", a.out)
	if err != nil {
		return err
	}

	msg, err := a.messageService.Send(ctx, a.currentUser, recipient, body, secret)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			fmt.Fprintf(a.out, "Cannot send: %v\n", err)
			return nil
		}
		fmt.Fprintf(a.out, "Send failed: %v\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Message sent to %s (id %s).\n", recipient, msg.ID)
	return nil
}

// ShowInbox lists unread messages grouped by sender and lets the user pick
// one to decrypt with the shared secret key.
func (a *App) ShowInbox(ctx context.Context) error {
	grouped, err := a.messageService.Inbox(ctx, a.currentUser)
	if err != nil {
		fmt.Fprintf(a.out, "Could not load inbox: %v\n", err)
		return err
	}
	if len(grouped) == 0 {
		fmt.Fprintln(a.out, "No unread messages.")
		return nil
	}

	senders := make([]string, 0, len(grouped))
	for s := range grouped {
		senders = append(senders, s)
	}
	sort.Strings(senders)

	var flat []*models.Message
	fmt.Fprintln(a.out, "\nUnread messages:")
	for _, sender := range senders {
		msgs := grouped[sender]
		fmt.Fprintf(a.out, "From %s (%d):\n", sender, len(msgs))
		for _, m := range msgs {
			flat = append(flat, m)
			fmt.Fprintf(a.out, "  %d) sent %s\n", len(flat), m.SentAt.Local().Format("2006-01-02 15:04"))
		}
	}

	choice, err := GetSimpleText(a.reader, "Choose a message to read (0 to go back)", a.out)
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 0 || idx > len(flat) {
		fmt.Fprintln(a.out, "Invalid choice.")
		return nil
	}
	if idx == 0 {
		return nil
	}
	msg := flat[idx-1]

	secret, err := GetSecretKey("Secret key", a.out)
	if err != nil {
		return err
	}

	body, err := a.messageService.Read(ctx, msg.ID, a.currentUser, secret)
	switch {
	case err == nil:
		fmt.Fprintf(a.out, "\n--- message from %s ---\n%s\n--- end ---\n", msg.Sender, body)
		return nil
	case errors.Is(err, common.ErrWrongKey):
		fmt.Fprintln(a.out, "Wrong key! Access denied. The message stays unread.")
		return nil
	case errors.Is(err, common.ErrConflict):
		fmt.Fprintln(a.out, "This message has already been read.")
		return nil
	case errors.Is(err, common.ErrNotFound):
		fmt.Fprintln(a.out, "Message not found.")
		return nil
	default:
		fmt.Fprintf(a.out, "Read failed: %v\n", err)
		return err
	}
}

// ListUsers prints every registered user except the current one.
func (a *App) ListUsers(ctx context.Context) error {
	users, err := a.userService.AvailableUsers(ctx, a.currentUser)
	if err != nil {
		fmt.Fprintf(a.out, "Could not list users: %v\n", err)
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No other users registered yet.")
		return nil
	}

	fmt.Fprintln(a.out, "\nRegistered users:")
	for _, u := range users {
		fmt.Fprintf(a.out, "  %s (since %s)\n", u.Handle, u.CreatedAt.Local().Format("2006-01-02"))
	}
	return nil
}

// Logout ends the current session; the menu loop returns to the login screen.
func (a *App) Logout() {
	fmt.Fprintf(a.out, "Goodbye, %s.\n", a.currentUser)
	a.logout()
}
