package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// ----- Fakes -----

type fakeSession struct {
	sent        []string
	sentChannel string
	sendErr     error

	history    []*discordgo.Message
	historyErr error
	beforeID   string
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sentChannel = channelID
	f.sent = append(f.sent, content)
	return &discordgo.Message{Content: content}, f.sendErr
}

func (f *fakeSession) ChannelMessages(_ string, _ int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.beforeID = beforeID
	return f.history, f.historyErr
}

type fakeResponder struct {
	response string
	ok       bool
	last     string
}

func (f *fakeResponder) Match(message string) (string, bool) {
	f.last = message
	return f.response, f.ok
}

type fakeIssuer struct {
	principal uint64
	token     string
}

func (f *fakeIssuer) Issue(principalID uint64) string {
	f.principal = principalID
	return f.token
}

type fakeSummarizer struct {
	transcript string
	summary    string
	err        error
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	f.transcript = transcript
	return f.summary, f.err
}

func newTestListener(matcher Responder, tokens TokenIssuer, summarizer *fakeSummarizer) *Listener {
	l := &Listener{
		matcher:      matcher,
		tokens:       tokens,
		adminBaseURL: "http://localhost:3000",
		editCommand:  "!edit",
	}
	if summarizer != nil {
		l.summarizer = summarizer
	}
	return l
}

func incoming(authorID, channelID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "alice"},
	}}
}

// ----- Tests -----

func TestHandleMessage_IgnoresBots(t *testing.T) {
	s := &fakeSession{}
	l := newTestListener(&fakeResponder{response: "hi", ok: true}, &fakeIssuer{}, nil)

	m := incoming("123", "c1", "!edit and also a trigger")
	m.Author.Bot = true
	l.handleMessage(s, m)

	if len(s.sent) != 0 {
		t.Fatalf("bot message answered: %v", s.sent)
	}
}

func TestHandleMessage_EditCommandMintsTokenLink(t *testing.T) {
	s := &fakeSession{}
	issuer := &fakeIssuer{token: "tok-1"}
	l := newTestListener(&fakeResponder{}, issuer, nil)

	l.handleMessage(s, incoming("42", "c1", "!edit"))

	if issuer.principal != 42 {
		t.Fatalf("issued for principal %d; want 42", issuer.principal)
	}
	if len(s.sent) != 1 || s.sent[0] != "http://localhost:3000/?token=tok-1" {
		t.Fatalf("sent = %v", s.sent)
	}
	if s.sentChannel != "c1" {
		t.Fatalf("replied in %q; want c1", s.sentChannel)
	}
}

func TestHandleMessage_EditCommandBadAuthorID(t *testing.T) {
	s := &fakeSession{}
	l := newTestListener(&fakeResponder{}, &fakeIssuer{token: "tok"}, nil)

	l.handleMessage(s, incoming("not-a-number", "c1", "!edit"))

	if len(s.sent) != 0 {
		t.Fatalf("sent = %v; want nothing", s.sent)
	}
}

func TestHandleMessage_RuleMatchReplies(t *testing.T) {
	s := &fakeSession{}
	matcher := &fakeResponder{response: "https://youtu.be/x", ok: true}
	l := newTestListener(matcher, &fakeIssuer{}, nil)

	l.handleMessage(s, incoming("1", "c1", "it is kpop time"))

	if matcher.last != "it is kpop time" {
		t.Fatalf("matcher saw %q", matcher.last)
	}
	if len(s.sent) != 1 || s.sent[0] != "https://youtu.be/x" {
		t.Fatalf("sent = %v", s.sent)
	}
}

func TestHandleMessage_EditAndMatchBothFire(t *testing.T) {
	s := &fakeSession{}
	l := newTestListener(&fakeResponder{response: "pong", ok: true}, &fakeIssuer{token: "tok"}, nil)

	l.handleMessage(s, incoming("7", "c1", "!edit ping"))

	if len(s.sent) != 2 {
		t.Fatalf("sent = %v; want token link and rule reply", s.sent)
	}
}

func TestHandleMessage_SummaryRequest(t *testing.T) {
	// Gateway order: newest first. Chronological transcript must reverse it.
	s := &fakeSession{history: []*discordgo.Message{
		{Content: "second", Author: &discordgo.User{Username: "bob"}},
		{Content: "first", Author: &discordgo.User{Username: "alice"}},
	}}
	sum := &fakeSummarizer{summary: "they said hello"}
	l := newTestListener(&fakeResponder{}, &fakeIssuer{}, sum)

	l.handleMessage(s, incoming("1", "c1", "bot, what are they talking about?"))

	if s.beforeID != "m1" {
		t.Fatalf("history fetched before %q; want m1", s.beforeID)
	}
	want := "alice: first\nbob: second\n"
	if sum.transcript != want {
		t.Fatalf("transcript = %q; want %q", sum.transcript, want)
	}
	if len(s.sent) != 1 || s.sent[0] != "they said hello" {
		t.Fatalf("sent = %v", s.sent)
	}
}

func TestHandleMessage_SummaryDisabledWithoutSummarizer(t *testing.T) {
	s := &fakeSession{history: []*discordgo.Message{{Content: "x", Author: &discordgo.User{Username: "a"}}}}
	l := newTestListener(&fakeResponder{}, &fakeIssuer{}, nil)

	l.handleMessage(s, incoming("1", "c1", "bot, what are they talking about"))

	if len(s.sent) != 0 {
		t.Fatalf("sent = %v; want nothing", s.sent)
	}
}

func TestHandleMessage_SummaryFailuresStaySilent(t *testing.T) {
	cases := []struct {
		name string
		s    *fakeSession
		sum  *fakeSummarizer
	}{
		{"history error", &fakeSession{historyErr: errors.New("api down")}, &fakeSummarizer{summary: "s"}},
		{"empty history", &fakeSession{}, &fakeSummarizer{summary: "s"}},
		{"summarizer error", &fakeSession{history: []*discordgo.Message{{Content: "x", Author: &discordgo.User{Username: "a"}}}}, &fakeSummarizer{err: errors.New("no tokens")}},
	}
	for _, tc := range cases {
		l := newTestListener(&fakeResponder{}, &fakeIssuer{}, tc.sum)
		l.handleMessage(tc.s, incoming("1", "c1", summaryTrigger))
		if len(tc.s.sent) != 0 {
			t.Fatalf("%s: sent = %v; want nothing", tc.name, tc.s.sent)
		}
	}
}

func TestTranscript_SkipsNilAuthors(t *testing.T) {
	got := transcript([]*discordgo.Message{{Content: "orphan"}})
	if !strings.HasPrefix(got, ": orphan") {
		t.Fatalf("transcript = %q", got)
	}
}

func TestEditURL(t *testing.T) {
	if got := editURL("https://bot.example.com", "abc"); got != "https://bot.example.com/?token=abc" {
		t.Fatalf("editURL = %q", got)
	}
}
