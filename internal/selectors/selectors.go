// Package selectors is the only place that knows LinkedIn's page structure.
// When the site changes its markup, this file is the one to edit.
package selectors

import "github.com/yourusername/linkedin-connector/internal/browser"

const (
	LoginURL = "https://www.linkedin.com/login"
)

// Login page
var (
	LoginUsername = browser.Selector{Name: "login username field", CSS: "#username"}
	LoginPassword = browser.Selector{Name: "login password field", CSS: "#password"}

	// FeedLink only renders for an authenticated member
	FeedLink = browser.Selector{Name: "feed navigation link", XPath: "//a[contains(@href, '/feed/')]"}
)

// Profile page
var (
	ProfileReady = browser.Selector{Name: "profile page", CSS: "main"}

	ConnectButton = browser.Selector{Name: "connect button", CSS: "button", Text: "Connect"}
	PendingButton = browser.Selector{Name: "pending invitation button", CSS: "button", Text: "^\\s*Pending\\s*$"}
)

// Invitation dialog
var (
	AddNoteButton = browser.Selector{Name: "add a note button", CSS: "button[aria-label='Add a note']"}
	NoteInput     = browser.Selector{Name: "note message field", CSS: "[name='message']"}
	SendButton    = browser.Selector{Name: "send button", XPath: "//button//span[text()='Send']"}
)
