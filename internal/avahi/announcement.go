package avahi

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/muurk/devwatch/internal/logging"
)

// announcementSignature is the body of ItemNew and ItemRemove:
// interface, protocol, name, type, domain, flags
const announcementSignature = "iisssu"

// Announcement is an ItemNew or ItemRemove event from a service browser
type Announcement struct {
	Interface int32
	Protocol  int32
	Name      string
	Type      string
	Domain    string
	Flags     uint32
}

// Fields returns the announcement as logging fields
func (a Announcement) Fields() logging.ServiceFields {
	return logging.ServiceFields{
		Interface: a.Interface,
		Protocol:  a.Protocol,
		Name:      a.Name,
		Type:      a.Type,
		Domain:    a.Domain,
		Flags:     a.Flags,
	}
}

// Resolution is the reply of ResolveService for one announcement
type Resolution struct {
	Announcement
	Host            string
	AddressProtocol int32
	Address         string
	Port            uint16
	TXT             [][]byte
}

// ParseAnnouncement decodes an ItemNew or ItemRemove signal body
func ParseAnnouncement(sig *dbus.Signal) (Announcement, error) {
	var a Announcement

	sigStr := bodySignature(sig.Body)
	if sigStr != announcementSignature {
		return a, newDecodeError(sig, fmt.Errorf("expected body signature %q", announcementSignature))
	}

	err := dbus.Store(sig.Body, &a.Interface, &a.Protocol, &a.Name, &a.Type, &a.Domain, &a.Flags)
	if err != nil {
		return a, newDecodeError(sig, err)
	}
	return a, nil
}

// parseFailure decodes the error message carried by a browser Failure signal
func parseFailure(sig *dbus.Signal) string {
	var msg string
	if err := dbus.Store(sig.Body, &msg); err != nil || msg == "" {
		return "unknown failure"
	}
	return msg
}

func newDecodeError(sig *dbus.Signal, err error) *DecodeError {
	iface, member := splitName(sig.Name)
	return &DecodeError{
		Member:    member,
		Interface: iface,
		Path:      string(sig.Path),
		Signature: bodySignature(sig.Body),
		Err:       err,
	}
}

// splitName splits "org.freedesktop.Avahi.ServiceBrowser.ItemNew" into
// interface and member
func splitName(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// bodySignature returns the D-Bus signature of a body, or "?" if some value
// has no D-Bus representation.
func bodySignature(body []any) (sig string) {
	defer func() {
		if recover() != nil {
			sig = "?"
		}
	}()
	return dbus.SignatureOf(body...).String()
}
