package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipe-nonato/task-manager/internal/config"
	"github.com/felipe-nonato/task-manager/internal/domain"
	"github.com/felipe-nonato/task-manager/internal/external"
)

func forwarderConfig() config.ForwarderConfig {
	return config.ForwarderConfig{
		URL:         "https://tickets.example.test",
		APIKey:      "test-key",
		Origin:      "Campina",
		Env:         "DEV",
		Tower:       "Felipe Nonato",
		ProblemType: "Problem",
	}
}

func newTicketService(repo *fakeTicketRepo, fwd Forwarder, cfg config.ForwarderConfig) *TicketService {
	return NewTicketService(cfg, TicketDependencies{TicketRepo: repo, Forwarder: fwd})
}

func TestCreateTicketForwardSuccess(t *testing.T) {
	repo := newFakeTicketRepo()
	body := []byte(`{"eventId":"Event-AB12","accepted":true}`)
	fwd := &fakeForwarder{result: &external.Result{Status: 201, Body: body, EventID: "Event-AB12"}}
	svc := newTicketService(repo, fwd, forwarderConfig())

	ownerID := int64(7)
	outcome, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Priority:    "3",
		Label:       "disk",
		Description: "disk almost full",
		Value:       "server-01 disk at 95%",
		UserID:      &ownerID,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Sent)
	assert.Equal(t, "Event-AB12", outcome.EventID)
	assert.Equal(t, 201, outcome.Status)
	assert.JSONEq(t, string(body), string(outcome.Data))

	stored := repo.byID(outcome.TicketID)
	require.NotNil(t, stored)
	require.NotNil(t, stored.EventID)
	assert.Equal(t, "Event-AB12", *stored.EventID)
	require.NotNil(t, stored.ExternalStatus)
	assert.Equal(t, 201, *stored.ExternalStatus)
	require.NotNil(t, stored.ExternalResponse)
	assert.JSONEq(t, string(body), *stored.ExternalResponse)

	// Correlation identifiers: assigned at creation, distinct, echoed in the payload.
	assert.NotEmpty(t, stored.Resource)
	assert.NotEmpty(t, stored.SubResource)
	assert.NotEqual(t, stored.Resource, stored.SubResource)
	assert.Equal(t, stored.Resource, fwd.lastPayload.Resource)
	assert.Equal(t, stored.SubResource, fwd.lastPayload.SubResource)

	assert.Equal(t, "Campina", fwd.lastPayload.Origin)
	assert.Equal(t, "DEV", fwd.lastPayload.Env)
	assert.Equal(t, "Felipe Nonato", fwd.lastPayload.Tower)
	assert.Equal(t, "Problem", fwd.lastPayload.ProblemType)
	assert.Equal(t, "3", fwd.lastPayload.Priority)
	assert.Equal(t, "server-01 disk at 95%", fwd.lastPayload.ProblemValue)

	clock, err := strconv.ParseInt(fwd.lastPayload.UnixClock, 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix(), clock, 5)
}

func TestCreateTicketForwardFailureKeepsLocalRecord(t *testing.T) {
	repo := newFakeTicketRepo()
	fwd := &fakeForwarder{err: errors.New("dial tcp: connection refused")}
	svc := newTicketService(repo, fwd, forwarderConfig())

	outcome, err := svc.CreateTicket(context.Background(), TicketCreateInput{Priority: "2", Label: "net"})
	require.NoError(t, err)
	assert.False(t, outcome.Sent)
	assert.NotZero(t, outcome.TicketID)
	assert.Equal(t, domain.StatusForwardFailed, outcome.Status)
	assert.Contains(t, string(outcome.FailureDetail), "connection refused")

	stored := repo.byID(outcome.TicketID)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ExternalStatus)
	assert.Equal(t, domain.StatusForwardFailed, *stored.ExternalStatus)
	require.NotNil(t, stored.ExternalResponse)
	assert.Contains(t, *stored.ExternalResponse, "connection refused")
	assert.Nil(t, stored.EventID)

	assert.NotEmpty(t, stored.Resource)
	assert.NotEmpty(t, stored.SubResource)
	assert.NotEqual(t, stored.Resource, stored.SubResource)
}

func TestCreateTicketUpstreamErrorBodyRetained(t *testing.T) {
	repo := newFakeTicketRepo()
	upstreamBody := []byte(`{"message":"bad gateway"}`)
	fwd := &fakeForwarder{err: &external.StatusError{Status: 502, Body: upstreamBody}}
	svc := newTicketService(repo, fwd, forwarderConfig())

	outcome, err := svc.CreateTicket(context.Background(), TicketCreateInput{Label: "x"})
	require.NoError(t, err)
	assert.False(t, outcome.Sent)
	assert.JSONEq(t, string(upstreamBody), string(outcome.FailureDetail))

	stored := repo.byID(outcome.TicketID)
	require.NotNil(t, stored.ExternalResponse)
	var wrapped map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(*stored.ExternalResponse), &wrapped))
	assert.JSONEq(t, string(upstreamBody), string(wrapped["error"]))
}

func TestCreateTicketNotConfigured(t *testing.T) {
	repo := newFakeTicketRepo()
	fwd := &fakeForwarder{}
	svc := newTicketService(repo, fwd, config.ForwarderConfig{})

	_, err := svc.CreateTicket(context.Background(), TicketCreateInput{Label: "x"})
	assert.ErrorIs(t, err, ErrForwarderNotConfigured)
	assert.Empty(t, repo.tickets, "nothing may be persisted before the precondition check")
	assert.Zero(t, fwd.calls)
}

func TestCreateTicketStorageFailureSkipsForward(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.createErr = errors.New("disk full")
	fwd := &fakeForwarder{}
	svc := newTicketService(repo, fwd, forwarderConfig())

	_, err := svc.CreateTicket(context.Background(), TicketCreateInput{Label: "x"})
	assert.ErrorIs(t, err, ErrTicketStorage)
	assert.Zero(t, fwd.calls, "external call must not happen when the insert failed")
}

func TestListTicketsClampsPagination(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTicketService(repo, &fakeForwarder{}, forwarderConfig())

	_, _, err := svc.ListTickets(context.Background(), nil, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastFilter.Limit)
	assert.Equal(t, 0, repo.lastFilter.Offset)

	_, _, err = svc.ListTickets(context.Background(), nil, 10_000, 20)
	require.NoError(t, err)
	assert.Equal(t, 200, repo.lastFilter.Limit)
	assert.Equal(t, 20, repo.lastFilter.Offset)
}

func TestListTicketsOwnerFilterNewestFirst(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTicketService(repo, &fakeForwarder{}, forwarderConfig())

	alice, bob := int64(1), int64(2)
	base := time.Now().Add(-time.Hour)
	seed := []struct {
		owner *int64
		at    time.Time
	}{
		{&alice, base},
		{&bob, base.Add(time.Minute)},
		{&alice, base.Add(2 * time.Minute)},
		{nil, base.Add(3 * time.Minute)},
	}
	for _, s := range seed {
		require.NoError(t, repo.Create(context.Background(), &domain.Ticket{UserID: s.owner, CreatedAt: s.at}))
	}

	tickets, total, err := svc.ListTickets(context.Background(), &alice, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		require.NotNil(t, ticket.UserID)
		assert.Equal(t, alice, *ticket.UserID)
	}
	assert.True(t, tickets[0].CreatedAt.After(tickets[1].CreatedAt), "newest first")

	again, _, err := svc.ListTickets(context.Background(), &alice, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, tickets, again, "identical arguments with no writes in between return identical results")
}
