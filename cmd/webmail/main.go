package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nandhan/webmail/internal/config"
	"github.com/nandhan/webmail/internal/crypto"
	"github.com/nandhan/webmail/internal/gateway"
	"github.com/nandhan/webmail/internal/models"
	"github.com/nandhan/webmail/internal/notify"
	"github.com/nandhan/webmail/internal/prefs"
	"github.com/nandhan/webmail/internal/session"
	"github.com/nandhan/webmail/internal/store"
	"github.com/nandhan/webmail/internal/theme"
	"github.com/nandhan/webmail/internal/view"
)

func main() {
	folderFlag := flag.String("folder", "inbox", "view to print: a folder name, 'starred', or 'all-mail'")
	searchFlag := flag.String("search", "", "free-text filter for the inbox view")
	emailFlag := flag.String("email", "", "email address to log in with (if no stored session)")
	passwordFlag := flag.String("password", "", "password to log in with")
	logoutFlag := flag.Bool("logout", false, "clear the stored session and exit")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	prefsStore, err := prefs.Open(cfg.PrefsDBPath)
	if err != nil {
		log.Fatalf("Failed to open preference store: %v", err)
	}
	defer func() { _ = prefsStore.Close() }()

	cipher, err := crypto.NewTokenCipher(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create token cipher: %v", err)
	}

	client := gateway.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, nil)
	sessions := session.NewManager(prefsStore, cipher, client)
	client.SetTokenSource(sessions)

	themes := theme.NewManager(prefsStore)
	themes.Load(ctx)

	hub := notify.NewHub(16)
	collection := store.NewStore(client, prefsStore, sessions, hub, cfg.InboxPageSize)
	sessions.OnLogout(collection.Clear)
	client.SetOnUnauthorized(func() {
		log.Printf("Session expired, logging out")
		sessions.Logout(ctx)
	})

	if err := sessions.Restore(ctx); err != nil {
		log.Fatalf("Failed to restore session: %v", err)
	}

	if *logoutFlag {
		sessions.Logout(ctx)
		fmt.Println("Logged out.")
		return
	}

	if _, ok := sessions.CurrentUser(); !ok {
		if *emailFlag == "" || *passwordFlag == "" {
			log.Fatalf("No stored session; pass -email and -password to log in")
		}
		if err := sessions.Login(ctx, *emailFlag, *passwordFlag); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
	}

	user, _ := sessions.CurrentUser()
	themeName, _ := themes.Current()
	fmt.Printf("Signed in as %s (%s), theme %s\n\n", user.Username, user.Email, themeName)

	if err := collection.LoadSnapshot(ctx); err != nil {
		log.Fatalf("Failed to load inbox: %v", err)
	}

	emails := collection.Snapshot()
	printFolderSummary(emails)
	printView(emails, *folderFlag, *searchFlag)
}

func printFolderSummary(emails []models.Email) {
	fmt.Println("Folders:")
	for _, folder := range models.Folders {
		inFolder := view.ByFolder(emails, folder)
		unread := view.Unread(emails, folder)
		fmt.Printf("  %-8s %3d messages, %d unread\n", folder, len(inFolder), unread)
	}
	fmt.Printf("  %-8s %3d messages\n", "starred", len(view.Starred(emails)))
	fmt.Printf("  %-8s %3d messages\n\n", "all-mail", len(view.AllMail(emails)))
}

func printView(emails []models.Email, name, query string) {
	var selected []models.Email
	switch name {
	case "starred":
		selected = view.Starred(emails)
	case "all-mail":
		selected = view.AllMail(emails)
	case "inbox":
		selected = view.Inbox(emails, query)
	default:
		folder, ok := models.ParseFolder(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown view %q\n", name)
			os.Exit(2)
		}
		selected = view.ByFolder(emails, folder)
	}

	fmt.Printf("%s (%d):\n", name, len(selected))
	for _, e := range selected {
		marker := " "
		if !e.IsRead {
			marker = "*"
		}
		star := " "
		if e.Starred {
			star = "+"
		}
		fmt.Printf("%s%s %s  %-24s  %s\n", marker, star, e.ReceivedDate.Format("2006-01-02"), truncate(e.From, 24), e.Subject)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
