package usecase_test

import (
	"context"
	"io"
	"testing"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
)

func mustMessage(t *testing.T, convID, accountID, content string) chat.Message {
	t.Helper()
	m, err := chat.NewMessage(chat.Message{
		ConversationID: convID,
		AccountID:      accountID,
		Type:           chat.MessageTypeText,
		Content:        &content,
	})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	return *m
}

type fakeObjectStore struct{}

func (fakeObjectStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "mem://" + name, nil
}
