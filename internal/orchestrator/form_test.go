package orchestrator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/job"
)

func TestBuildFormSchema(t *testing.T) {
	schema := BuildFormSchema("form-1", []string{job.FieldAttendees, "budget code"})

	assert.Equal(t, "form-1", schema.ID)
	require.Len(t, schema.Fields, len(job.KnownFields)+1)

	byName := make(map[string]job.FormField)
	for _, f := range schema.Fields {
		byName[f.Name] = f
	}
	assert.True(t, byName[job.FieldAttendees].Required)
	assert.Equal(t, "list", byName[job.FieldAttendees].Type)
	assert.False(t, byName[job.FieldTopic].Required)
	assert.Equal(t, "select", byName[job.FieldUrgency].Type)
	assert.Equal(t, UrgencyOptions, byName[job.FieldUrgency].Options)
	assert.Equal(t, "textarea", byName[job.FieldBackground].Type)

	extra := schema.Fields[len(schema.Fields)-1]
	assert.Equal(t, "budget code", extra.Name)
	assert.True(t, extra.Required)
}

func TestPrefill(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	j := job.New("j1", now)
	j.Append(job.RoleUser, job.AgentUser, "We are blocked on hiring.", now)
	j.Append(job.RoleAssistant, job.AgentChat, "Tell me more.", now)
	j.Append(job.RoleUser, job.AgentUser, "Can we   meet about the hiring plan?", now)
	j.Form = &job.Form{Attendees: []string{"a@x.com"}}

	p := Prefill(j, 6)
	assert.Equal(t, "Can we meet about the hiring plan?", p[job.FieldTopic])
	assert.Equal(t, "We are blocked on hiring. Can we meet about the hiring plan?", p[job.FieldBackground])
	assert.Equal(t, []string{"a@x.com"}, p[job.FieldAttendees])

	long := job.New("j2", now)
	long.Append(job.RoleUser, job.AgentUser, strings.Repeat("word ", 40), now)
	topic := Prefill(long, 6)[job.FieldTopic].(string)
	assert.LessOrEqual(t, len([]rune(topic)), 80)
	assert.True(t, strings.HasSuffix(topic, "..."))

	assert.Empty(t, Prefill(job.New("j3", now), 6))
}

func TestBuildBriefing(t *testing.T) {
	form := &job.Form{
		Topic:            "Q4 strategy",
		Attendees:        []string{"a@x.com", "b@x.com"},
		DesiredTimeframe: "next week",
		Links:            []string{"https://docs.example/plan"},
		Extra:            map[string]string{"room": "Blue", "agenda": "budget"},
	}

	got := BuildBriefing("alice@example.com", form)
	assert.Equal(t, got, BuildBriefing("alice@example.com", form), "briefing must be deterministic")

	want := strings.Join([]string{
		"Meeting briefing",
		"Requester: alice@example.com",
		"Topic: Q4 strategy",
		"Attendees: a@x.com, b@x.com",
		"Urgency: none",
		"Desired timeframe: next week",
		"Background: none",
		"Links:",
		"- https://docs.example/plan",
		"agenda: budget",
		"room: Blue",
	}, "\n")
	assert.Equal(t, want, got)

	assert.Contains(t, BuildBriefing("", nil), "Requester: unknown")
}

func TestMeetingTitle(t *testing.T) {
	assert.Equal(t, "Meeting: Sync", meetingTitle(&job.Form{Topic: "Sync"}))
	assert.Equal(t, "Meeting request", meetingTitle(nil))
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.len())

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a locked key")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	<-acquired
	unlockB()
	require.Eventually(t, func() bool { return k.len() == 0 }, time.Second, 5*time.Millisecond)
}
