package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/app/user"
)

// ---- fakes ----

type fakeRepo struct {
	mu            sync.Mutex
	nextChannelID int64
	nextUserID    int64
	channels      map[string]directory.Channel
	users         map[string]int64
	touched       []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextChannelID: 0,
		nextUserID:    100,
		channels:      make(map[string]directory.Channel),
		users:         make(map[string]int64),
	}
}

func (f *fakeRepo) FindOrCreateChannel(_ context.Context, name string) (directory.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.channels[name]; ok {
		return ch, nil
	}
	f.nextChannelID++
	ch := directory.Channel{ID: f.nextChannelID, Name: name, Type: directory.TypePublic, LastTS: time.Now()}
	f.channels[name] = ch
	return ch, nil
}

func (f *fakeRepo) FindOrCreateUser(_ context.Context, name, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.users[name]; ok {
		return id, nil
	}
	f.nextUserID++
	f.users[name] = f.nextUserID
	return f.nextUserID, nil
}

func (f *fakeRepo) UserIDByName(_ context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[name], nil
}

func (f *fakeRepo) UserByID(_ context.Context, id int64) (directory.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, uid := range f.users {
		if uid == id {
			return directory.UserRecord{ID: id, Name: name, Country: "xx", Verified: true}, nil
		}
	}
	return directory.UserRecord{}, directory.ErrUserNotFound
}

func (f *fakeRepo) UserChannels(_ context.Context, _ int64) (map[int64]directory.Membership, error) {
	return map[int64]directory.Membership{}, nil
}

func (f *fakeRepo) CreateMembership(_ context.Context, _, _ int64, _ *int64) (bool, error) {
	return true, nil
}

func (f *fakeRepo) TouchChannel(_ context.Context, channelID int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, channelID)
	return nil
}

type muteCall struct {
	userID  int64
	minutes int
}

type fakeMutes struct {
	mu        sync.Mutex
	remaining map[int64]int64
	muted     map[int64]bool
	calls     []muteCall
	err       error
}

func newFakeMutes() *fakeMutes {
	return &fakeMutes{
		remaining: make(map[int64]int64),
		muted:     make(map[int64]bool),
	}
}

func (f *fakeMutes) CheckMuted(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.remaining[userID], nil
}

func (f *fakeMutes) Mute(_ context.Context, userID int64, minutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, muteCall{userID: userID, minutes: minutes})
	return nil
}

func (f *fakeMutes) Unmute(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	was := f.muted[userID]
	delete(f.muted, userID)
	return was, nil
}

type fakeProxy struct {
	flagged map[string]bool
	err     error
}

func (f *fakeProxy) IsProxy(_ context.Context, ip string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.flagged[ip], nil
}

type broadcastCall struct {
	name      string
	message   string
	channelID int64
	userID    int64
	country   string
	sendAPI   bool
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) BroadcastChatMessage(name, message string, channelID, userID int64, country string, sendAPI bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{
		name:      name,
		message:   message,
		channelID: channelID,
		userID:    userID,
		country:   country,
		sendAPI:   sendAPI,
	})
}

func (f *fakeBroadcaster) all() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]broadcastCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// ---- test harness ----

type testEnv struct {
	provider    *Provider
	repo        *fakeRepo
	mutes       *fakeMutes
	proxy       *fakeProxy
	broadcaster *fakeBroadcaster
	dir         *directory.Directory

	enChannelID  int64
	intChannelID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	repo.users["A"] = 10
	repo.users["Bad Guy"] = 77

	dir := directory.New(repo, nil)
	require.NoError(t, dir.Initialize(context.Background()))

	mutes := newFakeMutes()
	px := &fakeProxy{flagged: make(map[string]bool)}
	bc := &fakeBroadcaster{}

	return &testEnv{
		provider:     NewProvider(dir, mutes, px, bc),
		repo:         repo,
		mutes:        mutes,
		proxy:        px,
		broadcaster:  bc,
		dir:          dir,
		enChannelID:  repo.channels["en"].ID,
		intChannelID: repo.channels["int"].ID,
	}
}

func testUser() *user.User {
	return &user.User{
		ID:       10,
		Name:     "A",
		IP:       "198.51.100.7",
		Country:  "de",
		Role:     user.RoleUser,
		Verified: true,
		Lang:     "de",
		Channels: map[int64]directory.Membership{},
	}
}

// ---- pipeline tests ----

func TestSendMessage_Accepted(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.NoError(t, err)
	assert.Empty(t, reject)

	history := env.provider.GetHistory(env.enChannelID, HistoryLimit)
	require.Len(t, history, 1)
	assert.Equal(t, "A", history[0].Name)
	assert.Equal(t, "hello", history[0].Message)
	assert.Equal(t, "de", history[0].Country)

	calls := env.broadcaster.all()
	require.Len(t, calls, 1)
	assert.Equal(t, broadcastCall{
		name: "A", message: "hello", channelID: env.enChannelID,
		userID: 10, country: "de", sendAPI: true,
	}, calls[0])

	assert.Equal(t, []int64{env.enChannelID}, env.repo.touched)
}

func TestSendMessage_ProxyBlocked(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()
	env.proxy.flagged[u.IP] = true

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "You can not send chat messages with proxy", reject)
	assert.Empty(t, env.broadcaster.all())
}

func TestSendMessage_ProxySkippedForStaff(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()
	u.Role = user.RoleModerator
	env.proxy.flagged[u.IP] = true

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.NoError(t, err)
	assert.Empty(t, reject)
}

func TestSendMessage_ProxyProbeFailureBlocks(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()
	env.proxy.err = errors.New("probe down")

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.Error(t, err)
	assert.Empty(t, reject)
	assert.Empty(t, env.broadcaster.all())
}

func TestSendMessage_IncompleteIdentity(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()
	u.Name = ""

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Couldn't send your message, pls log out and back in again.", reject)
}

func TestSendMessage_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	for i := 0; i < RateLimitCapacity; i++ {
		reject, err := env.provider.SendMessage(context.Background(), u, fmt.Sprintf("msg %d", i), env.enChannelID)
		require.NoError(t, err)
		require.Empty(t, reject)
	}

	reject, err := env.provider.SendMessage(context.Background(), u, "one more", env.enChannelID)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reject, "You are sending messages too fast"), reject)
	assert.Len(t, env.broadcaster.all(), RateLimitCapacity)
}

func TestSendMessage_NoChannelAccess(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", 9999)

	require.NoError(t, err)
	assert.Equal(t, "You don't have access to this channel", reject)
}

func TestSendMessage_LanguageChannelAccess(t *testing.T) {
	env := newTestEnv(t)
	u := testUser() // lang "de"
	deChannelID := env.repo.channels["de"].ID

	reject, err := env.provider.SendMessage(context.Background(), u, "hallo", deChannelID)

	require.NoError(t, err)
	assert.Empty(t, reject)

	u.Lang = "fr"
	reject, err = env.provider.SendMessage(context.Background(), u, "hallo encore", deChannelID)

	require.NoError(t, err)
	assert.Equal(t, "You don't have access to this channel", reject)
}

func TestSendMessage_Unverified(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()
	u.Verified = false

	reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Your mail has to be verified in order to chat", reject)
}

func TestSendMessage_Muted(t *testing.T) {
	t.Run("permanent", func(t *testing.T) {
		env := newTestEnv(t)
		u := testUser()
		env.mutes.remaining[u.ID] = -1

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "You are permanently muted, join our guilded to appeal the mute", reject)
	})

	t.Run("long remainder reported in minutes", func(t *testing.T) {
		env := newTestEnv(t)
		u := testUser()
		env.mutes.remaining[u.ID] = 3600

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "You are muted for another 60 minutes", reject)
	})

	t.Run("short remainder reported in seconds", func(t *testing.T) {
		env := newTestEnv(t)
		u := testUser()
		env.mutes.remaining[u.ID] = 90

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "You are muted for another 90 seconds", reject)
	})

	t.Run("store failure blocks instead of defaulting to not muted", func(t *testing.T) {
		env := newTestEnv(t)
		u := testUser()
		env.mutes.err = errors.New("store down")

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.Error(t, err)
		assert.Empty(t, reject)
		assert.Empty(t, env.broadcaster.all())
	})
}

func TestSendMessage_SpamFilterMutes(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	reject, err := env.provider.SendMessage(context.Background(), u, "ADMIN admin Admin aDMIN here", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Ow no! Spam protection decided to mute you", reject)

	require.Len(t, env.mutes.calls, 1)
	assert.Equal(t, muteCall{userID: 10, minutes: SpamMuteMinutes}, env.mutes.calls[0])

	// the only broadcast is the info announcement of the mute
	calls := env.broadcaster.all()
	require.Len(t, calls, 1)
	assert.Equal(t, directory.InfoUserName, calls[0].name)
}

func TestSendMessage_TooLong(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	reject, err := env.provider.SendMessage(context.Background(), u, strings.Repeat("a", MaxMessageLength+1), env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "You can't send a message this long :(", reject)
	assert.Empty(t, env.mutes.calls)
}

func TestSendMessage_ScriptRestriction(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	reject, err := env.provider.SendMessage(context.Background(), u, "привет", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Please use int channel", reject)

	// the same text is fine on the int channel
	reject, err = env.provider.SendMessage(context.Background(), u, "привет", env.intChannelID)

	require.NoError(t, err)
	assert.Empty(t, reject)
}

func TestSendMessage_CountryMute(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser()
	admin.ID = 11
	admin.Name = "Op"
	admin.Role = user.RoleAdmin

	reject, err := env.provider.SendMessage(context.Background(), admin, "/mutec DE", env.enChannelID)
	require.NoError(t, err)
	require.Empty(t, reject)

	u := testUser() // country "de"
	reject, err = env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Your country is temporary muted from chat", reject)

	reject, err = env.provider.SendMessage(context.Background(), admin, "/unmutec de", env.enChannelID)
	require.NoError(t, err)
	require.Empty(t, reject)

	reject, err = env.provider.SendMessage(context.Background(), u, "hello again", env.enChannelID)

	require.NoError(t, err)
	assert.Empty(t, reject)
}

func TestSendMessage_FloodDetection(t *testing.T) {
	env := newTestEnv(t)
	u := testUser()

	for i := 0; i < FloodThreshold-1; i++ {
		reject, err := env.provider.SendMessage(context.Background(), u, "same thing", env.enChannelID)
		require.NoError(t, err)
		require.Empty(t, reject, "send %d should pass", i+1)
	}

	reject, err := env.provider.SendMessage(context.Background(), u, "same thing", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Stop flooding.", reject)
	assert.Zero(t, u.MessageRepeat)

	require.Len(t, env.mutes.calls, 1)
	assert.Equal(t, muteCall{userID: 10, minutes: FloodMuteMinutes}, env.mutes.calls[0])

	// a distinct message afterwards starts a fresh run
	reject, err = env.provider.SendMessage(context.Background(), u, "something else", env.enChannelID)
	require.NoError(t, err)
	assert.Empty(t, reject)
	assert.Zero(t, u.MessageRepeat)
}

func TestSendMessage_CountryDisplayOverrides(t *testing.T) {
	t.Run("name suffix forces display country", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.users["Goldberg"] = 12

		u := testUser()
		u.ID = 12
		u.Name = "Goldberg"

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.NoError(t, err)
		require.Empty(t, reject)

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "il", calls[0].country)
	})

	t.Run("per-account exception table wins", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.users["Manchukuo_1940"] = 2927

		u := testUser()
		u.ID = 2927
		u.Name = "Manchukuo_1940"

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.NoError(t, err)
		require.Empty(t, reject)

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "bt", calls[0].country)
	})

	t.Run("missing country displays as xx", func(t *testing.T) {
		env := newTestEnv(t)
		u := testUser()
		u.Country = ""

		reject, err := env.provider.SendMessage(context.Background(), u, "hello", env.enChannelID)

		require.NoError(t, err)
		require.Empty(t, reject)

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "xx", calls[0].country)
	})
}

func TestSendMessage_CommandsRequireRole(t *testing.T) {
	env := newTestEnv(t)
	u := testUser() // RoleUser

	reject, err := env.provider.SendMessage(context.Background(), u, "/mutec ru", env.enChannelID)

	require.NoError(t, err)
	// treated as a plain message, so it is accepted and broadcast
	assert.Empty(t, reject)
	calls := env.broadcaster.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "/mutec ru", calls[0].message)
}

func TestBroadcastChatMessage_LengthCap(t *testing.T) {
	env := newTestEnv(t)

	env.provider.BroadcastChatMessage("A", strings.Repeat("a", MaxBroadcastLength+1), env.enChannelID, 10, "de", true)

	assert.Empty(t, env.broadcaster.all())
	assert.Empty(t, env.provider.GetHistory(env.enChannelID, HistoryLimit))

	env.provider.BroadcastChatMessage("A", strings.Repeat("a", MaxBroadcastLength), env.enChannelID, 10, "de", true)

	assert.Len(t, env.broadcaster.all(), 1)
}
