package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// menuIface defines the minimal command surface the menu loop needs.
// The real App type satisfies this interface; tests can provide a stub.
type menuIface interface {
	WriteMessage(ctx context.Context) error
	ShowInbox(ctx context.Context) error
	ListUsers(ctx context.Context) error
	Logout()
}

// runMenu shows the main menu and dispatches on the selected option until the
// user logs out (returns true, back to the login screen) or exits (returns
// false). Handler errors are reported by the handlers themselves; the loop
// only cares about navigation.
func runMenu(ctx context.Context, a menuIface, reader *bufio.Reader, w io.Writer) bool {
	for {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "1) Write message")
		fmt.Fprintln(w, "2) Unread messages")
		fmt.Fprintln(w, "3) List users")
		fmt.Fprintln(w, "4) Logout")
		fmt.Fprintln(w, "0) Exit")

		choice, err := GetSimpleText(reader, "Choose an option", w)
		if err != nil {
			return false
		}

		switch choice {
		case "1":
			_ = a.WriteMessage(ctx)
		case "2":
			_ = a.ShowInbox(ctx)
		case "3":
			_ = a.ListUsers(ctx)
		case "4":
			a.Logout()
			return true
		case "0", "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return false
		default:
			fmt.Fprintln(w, "Unknown option:", choice)
		}
	}
}
