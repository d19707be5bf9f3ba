package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

// AppName titles desktop notifications
const AppName = "igaudit"

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", "--app-name", AppName, title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleScriptEscape(message), appleScriptEscape(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func appleScriptEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("%s").Show($toast)
	`, xmlEscape(title), xmlEscape(message), AppName)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// Notifier prints notifications to the terminal and, where supported,
// raises a desktop notification. Delivery is best effort.
type Notifier struct {
	sender NotificationSender
	out    io.Writer
}

// NewNotifier creates a new Notifier based on the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a Notifier using sender and printing to out.
// Either may be nil.
func NewNotifierWithSender(sender NotificationSender, out io.Writer) *Notifier {
	if out == nil {
		out = io.Discard
	}
	return &Notifier{sender: sender, out: out}
}

func (n *Notifier) writer() io.Writer {
	if n.out != nil {
		return n.out
	}
	return Output
}

// ScanCompleteMessage is the text announcing a finished scan
func ScanCompleteMessage(nonFollowers, processed int) string {
	noun := "accounts don't"
	if nonFollowers == 1 {
		noun = "account doesn't"
	}
	return fmt.Sprintf("%d %s follow you back (%d checked)", nonFollowers, noun, processed)
}

// NotifyScanComplete announces a completed scan. The terminal line is
// always printed; the desktop notification error is returned.
func (n *Notifier) NotifyScanComplete(nonFollowers, processed int) error {
	return n.SendSuccess("Scan complete", ScanCompleteMessage(nonFollowers, processed))
}

// SendNotification sends a desktop notification and prints to console
func (n *Notifier) SendNotification(title, message string) error {
	fmt.Fprintf(n.writer(), "\n%s: %s\n", Cyan(title), Yellow(message))
	return n.send(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) error {
	fmt.Fprintf(n.writer(), "\n%s: %s\n", Red(title), Red(message))
	return n.send(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) error {
	fmt.Fprintf(n.writer(), "\n%s: %s\n", Green(title), Green(message))
	return n.send(title, message)
}

func (n *Notifier) send(title, message string) error {
	if n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}
