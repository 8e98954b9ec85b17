// Package discord connects the rule matcher, the token issuer, and the
// summarizer to a Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/sanchopanca/thunderbot/internal/ai"
)

// summaryTrigger is the phrase that asks the bot to recap recent chat.
const summaryTrigger = "bot, what are they talking about"

// historyLimit caps how many prior messages feed one summary.
const historyLimit = 50

// summaryTimeout bounds the history fetch plus the completion call.
const summaryTimeout = 30 * time.Second

// Responder matches an incoming message against the rule table.
type Responder interface {
	Match(message string) (string, bool)
}

// TokenIssuer mints an edit token for a principal.
type TokenIssuer interface {
	Issue(principalID uint64) string
}

// session is the slice of *discordgo.Session the listener uses; tests
// install a fake.
type session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Listener reacts to gateway messages. It handles three independent
// concerns per message: the edit command, the summary request, and rule
// matching. A single message may trigger more than one of them.
type Listener struct {
	dg         *discordgo.Session
	matcher    Responder
	tokens     TokenIssuer
	summarizer ai.Summarizer // nil when no API key is configured

	adminBaseURL string
	editCommand  string
}

// NewListener builds a listener on a fresh gateway session. The session is
// not opened yet; call Open once the rest of the process is wired.
func NewListener(botToken, adminBaseURL, editCommand string, matcher Responder, tokens TokenIssuer, summarizer ai.Summarizer) (*Listener, error) {
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	l := &Listener{
		dg:           dg,
		matcher:      matcher,
		tokens:       tokens,
		summarizer:   summarizer,
		adminBaseURL: adminBaseURL,
		editCommand:  editCommand,
	}
	dg.AddHandler(l.onMessageCreate)
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Msg("discord gateway connected")
	})
	return l, nil
}

// Open connects to the gateway and starts receiving events.
func (l *Listener) Open() error {
	if err := l.dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close tears down the gateway connection.
func (l *Listener) Close() error {
	return l.dg.Close()
}

func (l *Listener) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	l.handleMessage(s, m)
}

// handleMessage runs the three checks for one message. Messages from bots
// (including our own) are ignored so two rule-matched bots cannot loop.
func (l *Listener) handleMessage(s session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	content := m.Content

	if strings.HasPrefix(content, l.editCommand) {
		l.handleEditCommand(s, m)
	}

	if strings.Contains(content, summaryTrigger) {
		l.handleSummaryRequest(s, m)
	}

	if response, ok := l.matcher.Match(content); ok {
		l.send(s, m.ChannelID, response)
	}
}

// handleEditCommand mints a token for the author and replies with a link to
// the admin page. The token rides in the URL, so the reply lands in the same
// channel the command came from; anyone who can read the channel can edit.
func (l *Listener) handleEditCommand(s session, m *discordgo.MessageCreate) {
	principalID, err := strconv.ParseUint(m.Author.ID, 10, 64)
	if err != nil {
		log.Warn().Str("author_id", m.Author.ID).Msg("author id is not a snowflake")
		return
	}
	tok := l.tokens.Issue(principalID)
	l.send(s, m.ChannelID, editURL(l.adminBaseURL, tok))
}

// handleSummaryRequest fetches the channel history before the requesting
// message and posts a summary. Silently drops the request when summarization
// is not configured or anything fails; chat is not the place for stack
// traces.
func (l *Listener) handleSummaryRequest(s session, m *discordgo.MessageCreate) {
	if l.summarizer == nil {
		return
	}

	history, err := s.ChannelMessages(m.ChannelID, historyLimit, m.ID, "", "")
	if err != nil {
		log.Error().Err(err).Str("channel_id", m.ChannelID).Msg("fetch channel history")
		return
	}
	if len(history) == 0 {
		log.Warn().Str("channel_id", m.ChannelID).Msg("no messages to summarize")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	summary, err := l.summarizer.Summarize(ctx, transcript(history))
	if err != nil {
		log.Error().Err(err).Msg("summarize channel history")
		return
	}
	l.send(s, m.ChannelID, summary)
}

func (l *Listener) send(s session, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("send discord message")
	}
}

// transcript renders history as "author: content" lines in chronological
// order. The gateway returns newest first, so iterate backwards.
func transcript(history []*discordgo.Message) string {
	var b strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Author != nil {
			b.WriteString(msg.Author.Username)
		}
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// editURL joins the admin base URL with the token query parameter. The base
// is already normalized to have no trailing slash.
func editURL(base, token string) string {
	return base + "/?token=" + token
}
