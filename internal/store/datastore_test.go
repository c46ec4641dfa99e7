package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Friiyous/reseau-social/internal/apperr"
	"github.com/Friiyous/reseau-social/internal/models"
)

// runDataStoreTests runs the shared store cases, each against a fresh store.
func runDataStoreTests(t *testing.T, open func(t *testing.T) DataStore) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s DataStore)
	}{
		{"CreateAndGetUser", testCreateAndGetUser},
		{"GetOrCreateConversationCanonical", testGetOrCreateConversationCanonical},
		{"GetOrCreateConversationConcurrent", testGetOrCreateConversationConcurrent},
		{"AppendMessageTouchesConversation", testAppendMessageTouchesConversation},
		{"ConcurrentAppendsStayOrdered", testConcurrentAppendsStayOrdered},
		{"HistoryScopes", testHistoryScopes},
		{"MarkConversationRead", testMarkConversationRead},
		{"ListConversationsOrder", testListConversationsOrder},
		{"Notifications", testNotifications},
		{"ListActiveUserIDs", testListActiveUserIDs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

func seedUser(t *testing.T, s DataStore, first string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &models.User{
		FirstName: first,
		LastName:  "Test",
		Username:  first,
		District:  "Korhogo",
		IsActive:  true,
	})
	require.NoError(t, err)
	return u
}

func testCreateAndGetUser(t *testing.T, s DataStore) {
	ctx := context.Background()

	token := "device-abc"
	u, err := s.CreateUser(ctx, &models.User{FirstName: "Awa", LastName: "Kone", DeviceToken: &token, IsActive: true})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "agent_sante", u.Role)
	require.NotNil(t, u.DeviceToken)
	assert.Equal(t, token, *u.DeviceToken)

	missing, err := s.GetUser(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testGetOrCreateConversationCanonical(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")

	conv, created, err := s.GetOrCreateConversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, a.ID, conv.User1ID)
	assert.Equal(t, b.ID, conv.User2ID)
	assert.Nil(t, conv.LastMessageID)

	again, created, err := s.GetOrCreateConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	_, _, err = s.GetOrCreateConversation(ctx, a.ID, a.ID)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func testGetOrCreateConversationConcurrent(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")

	const n = 16
	var wg sync.WaitGroup
	convIDs := make([]int64, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a.ID, b.ID
			if i%2 == 1 {
				x, y = y, x
			}
			conv, _, err := s.GetOrCreateConversation(ctx, x, y)
			errs[i] = err
			if conv != nil {
				convIDs[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, convIDs[0], convIDs[i])
	}

	convs, err := s.ListConversationsForUser(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func testAppendMessageTouchesConversation(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")
	conv, _, err := s.GetOrCreateConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	first, err := s.AppendMessage(ctx, conv.ID, a.ID, b.ID, "hello")
	require.NoError(t, err)
	second, err := s.AppendMessage(ctx, conv.ID, b.ID, a.ID, "hi")
	require.NoError(t, err)
	assert.False(t, second.IsRead)

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageID)
	assert.Equal(t, second.ID, *got.LastMessageID)
	assert.False(t, got.UpdatedAt.Before(conv.UpdatedAt))

	msgs, err := s.ListConversationMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)

	stored, err := s.GetMessage(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)
}

func testHistoryScopes(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")
	c := seedUser(t, s, "c")

	ab, _, err := s.GetOrCreateConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	ac, _, err := s.GetOrCreateConversation(ctx, a.ID, c.ID)
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, ab.ID, a.ID, b.ID, "to b")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, ac.ID, c.ID, a.ID, "from c")
	require.NoError(t, err)

	all, err := s.ListMessagesForUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := s.ListConversationMessages(ctx, ab.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "to b", scoped[0].Content)
}

func testMarkConversationRead(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")
	conv, _, err := s.GetOrCreateConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	for _, body := range []string{"one", "two", "three"} {
		_, err := s.AppendMessage(ctx, conv.ID, a.ID, b.ID, body)
		require.NoError(t, err)
	}
	_, err = s.AppendMessage(ctx, conv.ID, b.ID, a.ID, "reply")
	require.NoError(t, err)

	unread, err := s.CountUnreadMessages(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	marked, err := s.MarkConversationRead(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, marked, 3)

	marked, err = s.MarkConversationRead(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, marked)

	unread, err = s.CountUnreadMessages(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	// The reply to a stays unread.
	inConv, err := s.CountUnreadInConversation(ctx, conv.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inConv)
}

func testListConversationsOrder(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")
	c := seedUser(t, s, "c")

	ab, _, err := s.GetOrCreateConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	ac, _, err := s.GetOrCreateConversation(ctx, a.ID, c.ID)
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, ac.ID, a.ID, c.ID, "first")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, ab.ID, a.ID, b.ID, "latest")
	require.NoError(t, err)

	convs, err := s.ListConversationsForUser(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, ab.ID, convs[0].ID)
	assert.Equal(t, ac.ID, convs[1].ID)

	page, err := s.ListConversationsForUser(ctx, a.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ac.ID, page[0].ID)
}

func testNotifications(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")

	n := &models.Notification{UserID: a.ID, Title: "Welcome", Message: "hello", Data: map[string]any{"k": "v"}}
	require.NoError(t, s.CreateNotification(ctx, n))
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, models.NotificationInfo, n.Type)

	require.NoError(t, s.CreateNotifications(ctx, []*models.Notification{
		{UserID: a.ID, Title: "Event", Type: models.NotificationEvent},
		{UserID: b.ID, Title: "Event", Type: models.NotificationEvent},
	}))

	list, err := s.ListNotifications(ctx, a.ID, 0, 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Event", list[0].Title)
	assert.Equal(t, "v", list[1].Data["k"])

	unread, err := s.CountUnreadNotifications(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	// b cannot touch a's notification.
	ok, err := s.MarkNotificationRead(ctx, n.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkNotificationRead(ctx, n.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := s.MarkAllNotificationsRead(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ok, err = s.DeleteNotification(ctx, n.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteNotification(ctx, n.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testListActiveUserIDs(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	_, err := s.CreateUser(ctx, &models.User{FirstName: "gone", IsActive: false})
	require.NoError(t, err)

	userIDs, err := s.ListActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, userIDs)
}

func testConcurrentAppendsStayOrdered(t *testing.T, s DataStore) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")
	conv, _, err := s.GetOrCreateConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	const n = 40
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			_, errs[i] = s.AppendMessage(ctx, conv.ID, from, to, fmt.Sprintf("msg %d", i))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	msgs, err := s.ListConversationMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < n; i++ {
		assert.Less(t, msgs[i-1].ID, msgs[i].ID)
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt), "created_at went backwards at %d", i)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageID)
	assert.Equal(t, msgs[n-1].ID, *got.LastMessageID)
	assert.False(t, got.UpdatedAt.Before(msgs[n-1].CreatedAt))
}
