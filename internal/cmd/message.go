package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/output"
	"github.com/courierbot/courier/internal/rest"
)

var (
	messageFile   string
	messageTTS    bool
	messageLimit  int
	messageBefore string
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Send and manage messages",
}

var messageSendCmd = &cobra.Command{
	Use:   "send <channel-id> [text]",
	Short: "Send a message, optionally with a file attachment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, err := core.ParseSnowflake(args[0])
		if err != nil {
			return err
		}
		var text string
		if len(args) > 1 {
			text = args[1]
		}

		req, err := buildSendRequest(channelID, text, strings.TrimSpace(messageFile), messageTTS)
		if err != nil {
			return err
		}

		return runMessageCall(cmd, req)
	},
}

var messageDeleteCmd = &cobra.Command{
	Use:   "delete <channel-id> <message-id>",
	Short: "Delete a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, messageID, err := parseMessageRef(args)
		if err != nil {
			return err
		}

		d, handle, err := setupClient(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup

		req := rest.DeleteMessage{ChannelID: channelID, MessageID: messageID}
		if _, err := rest.Call[core.Empty](cmd.Context(), d, req); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %s\n", messageID)
		return err
	},
}

var messageGetCmd = &cobra.Command{
	Use:   "get <channel-id> <message-id>",
	Short: "Fetch a single message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, messageID, err := parseMessageRef(args)
		if err != nil {
			return err
		}
		return runMessageCall(cmd, rest.GetChannelMessage{ChannelID: channelID, MessageID: messageID})
	},
}

var messageEditCmd = &cobra.Command{
	Use:   "edit <channel-id> <message-id> <text>",
	Short: "Replace the content of a message",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, messageID, err := parseMessageRef(args)
		if err != nil {
			return err
		}
		return runMessageCall(cmd, rest.EditMessage{ChannelID: channelID, MessageID: messageID, Content: args[2]})
	},
}

var messageListCmd = &cobra.Command{
	Use:   "list <channel-id>",
	Short: "List recent messages in a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		channelID, err := core.ParseSnowflake(args[0])
		if err != nil {
			return err
		}
		query := rest.MessageQuery{Limit: messageLimit}
		if strings.TrimSpace(messageBefore) != "" {
			if query.Before, err = core.ParseSnowflake(messageBefore); err != nil {
				return err
			}
		}

		d, handle, err := setupClient(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup

		messages, err := rest.Call[[]core.Message](cmd.Context(), d, rest.GetChannelMessages{ChannelID: channelID, Query: query})
		if err != nil {
			return err
		}

		formatter := output.NewFormatter(format)
		rendered := make([]string, 0, len(messages))
		for i := range messages {
			value, err := formatter.FormatMessage(&messages[i])
			if err != nil {
				return err
			}
			rendered = append(rendered, value)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(rendered, "\n\n"))
		return err
	},
}

func parseMessageRef(args []string) (core.Snowflake, core.Snowflake, error) {
	channelID, err := core.ParseSnowflake(args[0])
	if err != nil {
		return 0, 0, err
	}
	messageID, err := core.ParseSnowflake(args[1])
	if err != nil {
		return 0, 0, err
	}
	return channelID, messageID, nil
}

// runMessageCall performs a call that yields a single message and prints it.
func runMessageCall(cmd *cobra.Command, req rest.Request[core.Message]) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	d, handle, err := setupClient(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer handle.close() // nolint:errcheck // best-effort cleanup

	msg, err := rest.Call[core.Message](cmd.Context(), d, req)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatMessage(&msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// buildSendRequest picks CreateMessage or UploadFile.
func buildSendRequest(channelID core.Snowflake, text, file string, tts bool) (rest.Request[core.Message], error) {
	if file == "" {
		if strings.TrimSpace(text) == "" {
			return nil, errors.New("message text is required unless --file is given")
		}
		return rest.CreateMessage{ChannelID: channelID, Content: text, TTS: tts}, nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return rest.UploadFile{
		ChannelID: channelID,
		Filename:  filepath.Base(file),
		Content:   content,
		Message:   text,
	}, nil
}

func init() {
	messageSendCmd.Flags().StringVar(&messageFile, "file", "", "Attach a file (multipart upload)")
	messageSendCmd.Flags().BoolVar(&messageTTS, "tts", false, "Send as text-to-speech")
	messageListCmd.Flags().IntVar(&messageLimit, "limit", 50, "Maximum messages to return (1-100)")
	messageListCmd.Flags().StringVar(&messageBefore, "before", "", "Only messages before this message ID")

	messageCmd.AddCommand(messageSendCmd)
	messageCmd.AddCommand(messageGetCmd)
	messageCmd.AddCommand(messageListCmd)
	messageCmd.AddCommand(messageEditCmd)
	messageCmd.AddCommand(messageDeleteCmd)
	rootCmd.AddCommand(messageCmd)
}
