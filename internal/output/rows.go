package output

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

func entryWriter(entries []ratelimit.Entry) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Bucket", "Reset At", "Wait"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Bucket, formatTime(e.ResetAt), e.Wait.String()})
	}
	t.AppendFooter(table.Row{"", "Total", strconv.Itoa(len(entries))})
	return t
}

func channelWriter(ch *core.Channel) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"ID", ch.ID.String()})
	t.AppendRow(table.Row{"Type", ch.Type.String()})
	if ch.GuildID != 0 {
		t.AppendRow(table.Row{"Guild", ch.GuildID.String()})
	}
	if ch.Name != "" {
		t.AppendRow(table.Row{"Name", ch.Name})
	}
	if ch.Topic != "" {
		t.AppendRow(table.Row{"Topic", truncate(ch.Topic, 60)})
	}
	if ch.LastMessageID != 0 {
		t.AppendRow(table.Row{"Last Message", ch.LastMessageID.String()})
	}
	if len(ch.PermissionOverwrites) > 0 {
		t.AppendRow(table.Row{"Overwrites", strconv.Itoa(len(ch.PermissionOverwrites))})
	}
	for _, r := range ch.Recipients {
		t.AppendRow(table.Row{"Recipient", r.Username + " (" + r.ID.String() + ")"})
	}
	return t
}

func messageWriter(msg *core.Message) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"ID", msg.ID.String()})
	t.AppendRow(table.Row{"Channel", msg.ChannelID.String()})
	if msg.Author.ID != 0 {
		t.AppendRow(table.Row{"Author", msg.Author.Username + " (" + msg.Author.ID.String() + ")"})
	}
	t.AppendRow(table.Row{"Content", truncate(msg.Content, 60)})
	t.AppendRow(table.Row{"Sent", formatTime(msg.Timestamp)})
	for _, a := range msg.Attachments {
		t.AppendRow(table.Row{"Attachment", a.Filename + " (" + strconv.Itoa(a.Size) + " bytes)"})
	}
	if msg.Pinned {
		t.AppendRow(table.Row{"Pinned", "yes"})
	}
	return t
}

func gatewayWriter(url string) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Gateway URL"})
	t.AppendRow(table.Row{url})
	return t
}
