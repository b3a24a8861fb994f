package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/remote"
)

func TestShareService_SendAndRespond(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.chains.chains["c1"] = &domain.Chain{ID: "c1", Name: "Master Bus", AuthorID: "user-1"}

	share, err := env.shareSvc.Send(ctx, &domain.SendShareRequest{ChainID: "c1", RecipientID: "user-2"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if share.ChainName != "Master Bus" || share.SenderID != "user-1" {
		t.Errorf("Send() = %+v", share)
	}

	env.sessions.userID = "user-2"
	received, err := env.shareSvc.Received(ctx)
	if err != nil {
		t.Fatalf("Received() error = %v", err)
	}
	if len(received) != 1 || received[0].ID != share.ID {
		t.Fatalf("Received() = %+v", received)
	}

	resp, err := env.shareSvc.Respond(ctx, share.ID, &domain.RespondShareRequest{Action: "accept"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Share.Status != domain.ShareStatusAccepted || resp.Chain == nil {
		t.Fatalf("Respond() = %+v", resp)
	}
	if _, ok := env.store.GetCachedChain(ChainCacheKey("c1")); !ok {
		t.Error("accepted chain was not cached")
	}
}

func TestShareService_SendPrivateChainOfAnotherUser(t *testing.T) {
	env := newTestEnv(t, true)
	env.chains.chains["c9"] = &domain.Chain{ID: "c9", AuthorID: "user-9", IsPublic: false}

	_, err := env.shareSvc.Send(context.Background(), &domain.SendShareRequest{ChainID: "c9", RecipientID: "user-2"})
	if remote.KindOf(err) != remote.Application || remote.StatusOf(err) != http.StatusForbidden {
		t.Errorf("Send() error = %v, want forbidden application error", err)
	}
	if len(env.store.Queue()) != 0 {
		t.Error("rejected share was queued")
	}
}

func TestShareService_RespondValidation(t *testing.T) {
	env := newTestEnv(t, true)
	_, err := env.shareSvc.Respond(context.Background(), "s1", &domain.RespondShareRequest{Action: "maybe"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Respond() error = %v, want ErrValidation", err)
	}
}
