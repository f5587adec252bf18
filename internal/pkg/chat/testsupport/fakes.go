// Package testsupport provides in-memory stand-ins for the persistence and
// cache ports so application logic can be exercised without Postgres or Redis.
package testsupport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

// Store holds all in-memory state behind one mutex. The repository ports are
// exposed as views (Conversations, Messages, Accounts) because their method
// sets collide on a shared receiver.
type Store struct {
	mu  sync.Mutex
	seq int

	convs   map[string]*chat.Conversation
	members map[string][]chat.Member

	msgs      map[string]*chat.Message
	msgOrder  []string
	images    map[string][]chat.MessageImage
	reactions map[string]map[string]string
	pins      []chat.PinnedMessage

	accounts     map[string]*chat.Account
	tokens       map[string]string
	applications map[string]map[string]bool
}

func NewStore() *Store {
	return &Store{
		convs:        make(map[string]*chat.Conversation),
		members:      make(map[string][]chat.Member),
		msgs:         make(map[string]*chat.Message),
		images:       make(map[string][]chat.MessageImage),
		reactions:    make(map[string]map[string]string),
		accounts:     make(map[string]*chat.Account),
		tokens:       make(map[string]string),
		applications: make(map[string]map[string]bool),
	}
}

func (s *Store) Conversations() repository.ConversationRepository { return conversationView{s} }
func (s *Store) Messages() repository.MessageRepository           { return messageView{s} }
func (s *Store) Accounts() identity.AccountRepository             { return accountView{s} }

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// ---------------- seeding and inspection helpers ----------------

// AddAccount registers an account and a bearer token equal to "tok-<id>".
func (s *Store) AddAccount(a chat.Account) chat.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.nextID("acc")
	}
	cp := a
	s.accounts[a.ID] = &cp
	s.tokens["tok-"+a.ID] = a.ID
	return a
}

// AddApplication records that the candidate applied to the business.
func (s *Store) AddApplication(candidateID, businessID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applications[candidateID] == nil {
		s.applications[candidateID] = make(map[string]bool)
	}
	s.applications[candidateID][businessID] = true
}

// ConversationCount reports how many conversations exist.
func (s *Store) ConversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// MessageCount reports how many messages exist.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// MemberOf returns the stored member row, nil when absent.
func (s *Store) MemberOf(conversationID, accountID string) *chat.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members[conversationID] {
		if s.members[conversationID][i].AccountID == accountID {
			cp := s.members[conversationID][i]
			return &cp
		}
	}
	return nil
}

// ---------------- ConversationRepository ----------------

type conversationView struct{ s *Store }

var _ repository.ConversationRepository = conversationView{}

func (v conversationView) CreateConversation(ctx context.Context, c chat.Conversation, members []chat.Member) (string, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("conv")
	now := time.Now().UTC()
	c.ID = id
	c.CountMember = len(members)
	c.CreatedAt = now
	c.UpdatedAt = now
	s.convs[id] = &c
	rows := make([]chat.Member, len(members))
	for i, m := range members {
		m.ConversationID = id
		m.CreatedAt = now
		rows[i] = m
	}
	s.members[id] = rows
	return id, nil
}

func (v conversationView) FindByExactMembers(ctx context.Context, accountIDs []string) (*chat.Conversation, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		want[id] = true
	}
	for convID, members := range s.members {
		if len(members) != len(want) {
			continue
		}
		match := true
		for _, m := range members {
			if !want[m.AccountID] {
				match = false
				break
			}
		}
		if match {
			cp := *s.convs[convID]
			return &cp, nil
		}
	}
	return nil, nil
}

func (v conversationView) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (v conversationView) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]chat.Conversation, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Conversation
	for convID, members := range s.members {
		for _, m := range members {
			if m.AccountID == accountID {
				out = append(out, *s.convs[convID])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v conversationView) ListConversationIDs(ctx context.Context, accountID string) ([]string, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for convID, members := range s.members {
		for _, m := range members {
			if m.AccountID == accountID {
				ids = append(ids, convID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (v conversationView) IsMember(ctx context.Context, conversationID, accountID string) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[conversationID] {
		if m.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (v conversationView) ListMembers(ctx context.Context, conversationID string, limit int) ([]chat.MemberProfile, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	members := append([]chat.Member(nil), s.members[conversationID]...)
	sort.SliceStable(members, func(i, j int) bool {
		rank := func(k chat.MemberKind) int {
			if k == chat.MemberKindAdmin {
				return 0
			}
			return 1
		}
		return rank(members[i].Kind) < rank(members[j].Kind)
	})
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	out := make([]chat.MemberProfile, 0, len(members))
	for _, m := range members {
		acc, ok := s.accounts[m.AccountID]
		if !ok {
			continue
		}
		out = append(out, chat.MemberProfile{Account: *acc, MemberKind: m.Kind, Nickname: m.Nickname})
	}
	return out, nil
}

func (v conversationView) UpdateConversation(ctx context.Context, id string, name, avatar *string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	if name != nil {
		c.Name = name
	}
	if avatar != nil {
		c.Avatar = avatar
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (v conversationView) SetLastRead(ctx context.Context, conversationID, accountID string, at time.Time) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[conversationID]
	for i := range members {
		if members[i].AccountID == accountID {
			t := at
			members[i].LastReadAt = &t
			return nil
		}
	}
	return fmt.Errorf("account %s is not a member of %s", accountID, conversationID)
}

// ---------------- MessageRepository ----------------

type messageView struct{ s *Store }

var _ repository.MessageRepository = messageView{}

func (v messageView) SaveMessage(ctx context.Context, m chat.Message) (string, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("msg")
	m.ID = id
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	s.msgs[id] = &m
	s.msgOrder = append(s.msgOrder, id)
	if c, ok := s.convs[m.ConversationID]; ok {
		c.UpdatedAt = m.CreatedAt
	}
	return id, nil
}

func (v messageView) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.DeletedAt != nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (v messageView) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return v.listLocked(conversationID, limit, offset), nil
}

func (v messageView) listLocked(conversationID string, limit, offset int) []chat.Message {
	s := v.s
	var out []chat.Message
	for i := len(s.msgOrder) - 1; i >= 0; i-- {
		m := s.msgs[s.msgOrder[i]]
		if m.ConversationID == conversationID && m.DeletedAt == nil {
			out = append(out, *m)
		}
	}
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (v messageView) LastMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := v.listLocked(conversationID, 1, 0)
	if len(msgs) == 0 {
		return nil, nil
	}
	cp := msgs[0]
	return &cp, nil
}

func (v messageView) SaveImages(ctx context.Context, messageID string, urls []string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range urls {
		s.images[messageID] = append(s.images[messageID], chat.MessageImage{
			ID:        s.nextID("img"),
			MessageID: messageID,
			URL:       u,
			Position:  i,
		})
	}
	return nil
}

func (v messageView) ImagesFor(ctx context.Context, messageIDs []string) (map[string][]chat.MessageImage, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]chat.MessageImage)
	for _, id := range messageIDs {
		if imgs := s.images[id]; len(imgs) > 0 {
			out[id] = append([]chat.MessageImage(nil), imgs...)
		}
	}
	return out, nil
}

func (v messageView) ReactionsFor(ctx context.Context, accountID string, messageIDs []string) (map[string]string, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for _, id := range messageIDs {
		if kind, ok := s.reactions[id][accountID]; ok {
			out[id] = kind
		}
	}
	return out, nil
}

func (v messageView) SetReaction(ctx context.Context, messageID, accountID, kind string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[messageID]
	if !ok {
		return fmt.Errorf("message %s not found", messageID)
	}
	if s.reactions[messageID] == nil {
		s.reactions[messageID] = make(map[string]string)
	}
	prev := s.reactions[messageID][accountID]
	s.reactions[messageID][accountID] = kind
	switch prev {
	case "LIKE":
		m.CountLike--
	case "DISLIKE":
		m.CountDislike--
	}
	switch kind {
	case "LIKE":
		m.CountLike++
	case "DISLIKE":
		m.CountDislike++
	}
	return nil
}

func (v messageView) Pin(ctx context.Context, conversationID, messageID, accountID string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[messageID]
	if !ok {
		return fmt.Errorf("message %s not found", messageID)
	}
	for _, p := range s.pins {
		if p.ConversationID == conversationID && p.MessageID == messageID {
			return nil
		}
	}
	s.pins = append(s.pins, chat.PinnedMessage{
		ConversationID: conversationID,
		MessageID:      messageID,
		AccountID:      accountID,
		CreatedAt:      time.Now().UTC(),
	})
	m.IsPinned = true
	return nil
}

func (v messageView) ListPinned(ctx context.Context, conversationID string) ([]chat.Message, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Message
	for i := len(s.pins) - 1; i >= 0; i-- {
		p := s.pins[i]
		if p.ConversationID != conversationID {
			continue
		}
		if m, ok := s.msgs[p.MessageID]; ok && m.DeletedAt == nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (v messageView) CountUnread(ctx context.Context, conversationID, accountID string) (int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var lastRead *time.Time
	for _, m := range s.members[conversationID] {
		if m.AccountID == accountID {
			lastRead = m.LastReadAt
			break
		}
	}
	count := 0
	for _, id := range s.msgOrder {
		m := s.msgs[id]
		if m.ConversationID != conversationID || m.DeletedAt != nil || m.AccountID == accountID {
			continue
		}
		if lastRead == nil || m.CreatedAt.After(*lastRead) {
			count++
		}
	}
	return count, nil
}

// ---------------- AccountRepository ----------------

type accountView struct{ s *Store }

var _ identity.AccountRepository = accountView{}

func (v accountView) GetByID(ctx context.Context, id string) (*chat.Account, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (v accountView) ListByIDs(ctx context.Context, ids []string) ([]chat.Account, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Account
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (v accountView) GetByToken(ctx context.Context, token string) (*chat.Account, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (v accountView) HasApplication(ctx context.Context, candidateID, businessID string) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applications[candidateID][businessID], nil
}
