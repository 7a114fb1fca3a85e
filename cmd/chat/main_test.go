package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/core/conversation"
)

func TestPrintReply(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	reply := conversation.Reply{Kind: conversation.ReplyList, Message: "1. Sushi", Online: true}
	require.NoError(t, printReply(cmd, reply))
	assert.Equal(t, "1. Sushi\n(found online, not saved)\n\n", buf.String())

	buf.Reset()
	jsonOut = true
	t.Cleanup(func() { jsonOut = false })
	require.NoError(t, printReply(cmd, reply))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "list", decoded["kind"])
	assert.Equal(t, true, decoded["online"])
}

func TestChatFlags(t *testing.T) {
	for _, name := range []string{"store", "log-level", "json"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "error", rootCmd.Flags().Lookup("log-level").DefValue)
}
