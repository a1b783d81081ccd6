package guide

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/rerun-tv/rerun/internal/logger"
)

// xmltvTimeLayout is the XMLTV timestamp format: YYYYMMDDHHMMSS +ZZZZ.
const xmltvTimeLayout = "20060102150405 -0700"

// TV is the root element of an XMLTV document.
type TV struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr,omitempty"`
	Channels   []TVChannel `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

// TVChannel describes one channel in the document header.
type TVChannel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

// Programme is a single scheduled airing.
type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   Title  `xml:"title"`
}

// Title is the programme title element.
type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// ChannelListing pairs a channel's identity with its projected guide window.
type ChannelListing struct {
	ID      string
	Name    string
	Number  int
	Entries []Entry
}

// BuildTV assembles an XMLTV document from per-channel listings. Listings are
// emitted in the order given, which callers keep as dial order.
func BuildTV(listings []ChannelListing) *TV {
	tv := &TV{
		Generator:  "rerun",
		Channels:   make([]TVChannel, 0, len(listings)),
		Programmes: []Programme{},
	}

	for _, listing := range listings {
		tv.Channels = append(tv.Channels, TVChannel{
			ID:          listing.ID,
			DisplayName: []string{listing.Name, strconv.Itoa(listing.Number)},
		})
		for _, entry := range listing.Entries {
			tv.Programmes = append(tv.Programmes, Programme{
				Start:   entry.Start.Format(xmltvTimeLayout),
				Stop:    entry.End.Format(xmltvTimeLayout),
				Channel: listing.ID,
				Title:   Title{Value: entry.Title},
			})
		}
	}
	return tv
}

// WriteXMLTV writes the document to path, replacing any existing file
// atomically so EPG consumers never observe a partial guide.
func WriteXMLTV(path string, tv *TV) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending xmltv file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Log.Debug().Err(err).Msg("cleanup pending xmltv file")
		}
	}()

	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal xmltv document: %w", err)
	}
	if _, err := pending.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("write xmltv header: %w", err)
	}
	if _, err := pending.Write(out); err != nil {
		return fmt.Errorf("write xmltv data: %w", err)
	}
	if _, err := pending.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write xmltv data: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace xmltv file: %w", err)
	}
	return nil
}
