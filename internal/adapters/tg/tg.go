package tg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/larriantoniy/dateregbot/internal/domain"
	"github.com/larriantoniy/dateregbot/internal/ports"
	"github.com/zelenin/go-tdlib/client"
)

// TelegramClient реализует ports.TelegramClient через TDLib
type TelegramClient struct {
	client *client.Client
	logger *slog.Logger
	selfId int64
}

type ClientMode int

const (
	ClientModeRuntime ClientMode = iota // боевой режим: GetMe, лог self_id и т.д.
	ClientModeAuth                      // режим авторизации: промпты в консоли (телефон, код, пароль)
)

const (
	historyPageSize  = 100
	downloadPriority = 32
	downloadPoll     = 100 * time.Millisecond
)

var ErrRateLimited = errors.New("tdlib: too many requests")

func NewClient(
	apiID int32,
	apiHash string,
	baseDir string, // "./sessions"
	sc *ports.SessionConfig,
	log *slog.Logger,
	mode ClientMode,
) (*TelegramClient, error) {
	sessionDir := filepath.Join(baseDir, sc.SessionName)
	dbDir := filepath.Join(sessionDir, "database")
	filesDir := filepath.Join(sessionDir, "files")

	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir files dir: %w", err)
	}

	if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	}); err != nil {
		log.Error("TDLib SetLogVerbosityLevel", "error", err)
	}

	checkConnectivity(log, sc.Proxy)

	var opts []client.Option
	if sc.Proxy != nil && sc.Proxy.Enabled {
		opts = append(opts, client.WithProxy(&client.AddProxyRequest{
			Server: sc.Proxy.Server,
			Port:   sc.Proxy.Port,
			Enable: true,
			Type: &client.ProxyTypeSocks5{
				Username: sc.Proxy.Username,
				Password: sc.Proxy.Password,
			},
		}))
	}

	authorizer := client.ClientAuthorizer(TdParams(sc, apiID, apiHash, dbDir, filesDir))
	var handler client.AuthorizationStateHandler = authorizer
	if mode == ClientModeAuth {
		go client.CliInteractor(authorizer)
	} else {
		handler = newRuntimeAuthorizer(authorizer)
	}

	tdCli, err := client.NewClient(handler, opts...)
	if err != nil {
		log.Error("TDLib NewClient error", "session", sc.SessionName, "error", err)
		return nil, err
	}

	me, err := tdCli.GetMe()
	if err != nil {
		log.Error("GetMe failed, run with AUTH_MODE=true to sign in", "session", sc.SessionName, "error", err)
		tdCli.Close()
		return nil, err
	}

	log.Info("TDLib client initialized and authorized",
		"self_id", me.Id,
		"session", sc.SessionName,
		"phone", sc.Phone,
		"auth_mode", mode == ClientModeAuth,
	)

	return &TelegramClient{
		client: tdCli,
		logger: log,
		selfId: me.Id,
	}, nil
}

func (t *TelegramClient) SelfID() int64 {
	return t.selfId
}

func (t *TelegramClient) Close() {
	t.client.Close()
}

// Resolve ищет публичный чат по username, для числовых id - пользователя или чат
func (t *TelegramClient) Resolve(ctx context.Context, identifier string) (domain.Entity, error) {
	id := strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: empty identifier", ports.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return domain.Entity{}, err
	}

	chat, err := t.client.SearchPublicChat(&client.SearchPublicChatRequest{
		Username: id,
	})
	if err == nil {
		return t.entityFromChat(chat)
	}
	if isTooManyRequests(err) {
		return domain.Entity{}, ErrRateLimited
	}
	t.logger.Debug("SearchPublicChat failed", "identifier", id, "error", err)

	num, perr := strconv.ParseInt(id, 10, 64)
	if perr != nil {
		return domain.Entity{}, fmt.Errorf("%w: %s: %v", ports.ErrNotFound, id, err)
	}

	if num > 0 {
		usr, uerr := t.client.GetUser(&client.GetUserRequest{UserId: num})
		if uerr == nil {
			return entityFromUser(usr), nil
		}
		t.logger.Debug("GetUser failed", "user_id", num, "error", uerr)
		err = uerr
	}

	if c, cerr := t.client.GetChat(&client.GetChatRequest{ChatId: num}); cerr == nil {
		return t.entityFromChat(c)
	} else {
		t.logger.Debug("GetChat failed", "chat_id", num, "error", cerr)
	}

	return domain.Entity{}, fmt.Errorf("%w: %s: %v", ports.ErrNotFound, id, err)
}

func (t *TelegramClient) entityFromChat(chat *client.Chat) (domain.Entity, error) {
	switch ct := chat.Type.(type) {
	case *client.ChatTypePrivate:
		usr, err := t.client.GetUser(&client.GetUserRequest{UserId: ct.UserId})
		if err != nil {
			return domain.Entity{}, fmt.Errorf("GetUser %d: %w", ct.UserId, err)
		}
		ent := entityFromUser(usr)
		ent.ChatID = chat.Id
		return ent, nil

	case *client.ChatTypeSupergroup:
		ent := domain.Entity{
			ID:       ct.SupergroupId,
			ChatID:   chat.Id,
			Kind:     domain.KindGroup,
			Name:     chat.Title,
			Resolved: true,
		}
		if ct.IsChannel {
			ent.Kind = domain.KindChannel
		}
		sup, err := t.client.GetSupergroup(&client.GetSupergroupRequest{
			SupergroupId: ct.SupergroupId,
		})
		if err == nil && sup != nil {
			ent.Username = firstActive(sup.Usernames)
		}
		return ent, nil

	case *client.ChatTypeBasicGroup:
		return domain.Entity{
			ID:       ct.BasicGroupId,
			ChatID:   chat.Id,
			Kind:     domain.KindGroup,
			Name:     chat.Title,
			Resolved: true,
		}, nil

	default:
		return domain.Entity{
			ID:       chat.Id,
			ChatID:   chat.Id,
			Kind:     domain.KindGroup,
			Name:     chat.Title,
			Resolved: true,
		}, nil
	}
}

func entityFromUser(usr *client.User) domain.Entity {
	return domain.Entity{
		ID:       usr.Id,
		Kind:     domain.KindUser,
		Username: firstActive(usr.Usernames),
		Name:     strings.TrimSpace(usr.FirstName + " " + usr.LastName),
		Resolved: true,
	}
}

func firstActive(u *client.Usernames) string {
	if u == nil || len(u.ActiveUsernames) == 0 {
		return ""
	}
	return u.ActiveUsernames[0]
}

// ProfilePhotos скачивает фото профиля пользователя (самый большой размер каждого)
func (t *TelegramClient) ProfilePhotos(ctx context.Context, ent domain.Entity, limit int) ([]ports.ProfilePhoto, error) {
	if ent.Kind != domain.KindUser || !ent.Resolved || limit <= 0 {
		return nil, nil
	}

	photos, err := t.client.GetUserProfilePhotos(&client.GetUserProfilePhotosRequest{
		UserId: ent.ID,
		Offset: 0,
		Limit:  int32(limit),
	})
	if err != nil {
		if isTooManyRequests(err) {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("GetUserProfilePhotos: %w", err)
	}

	out := make([]ports.ProfilePhoto, 0, len(photos.Photos))
	for _, ph := range photos.Photos {
		if ph == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		p := ports.ProfilePhoto{AddedDate: time.Unix(int64(ph.AddedDate), 0).UTC()}

		var best *client.PhotoSize
		for _, size := range ph.Sizes {
			if size == nil || size.Photo == nil {
				continue
			}
			if best == nil || size.Width*size.Height > best.Width*best.Height {
				best = size
			}
		}
		if best != nil {
			data, err := t.downloadFile(ctx, best.Photo.Id)
			if err != nil {
				t.logger.Debug("profile photo download failed", "user_id", ent.ID, "error", err)
			} else {
				p.Data = data
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// downloadFile запускает загрузку и опрашивает её статус до завершения
func (t *TelegramClient) downloadFile(ctx context.Context, fileID int32) ([]byte, error) {
	_, err := t.client.DownloadFile(&client.DownloadFileRequest{
		FileId:      fileID,
		Priority:    downloadPriority,
		Offset:      0,
		Limit:       0,
		Synchronous: false,
	})
	if err != nil {
		return nil, fmt.Errorf("DownloadFile failed: %w", err)
	}

	ticker := time.NewTicker(downloadPoll)
	defer ticker.Stop()

	var fileInfo *client.File
	for {
		fileInfo, err = t.client.GetFile(&client.GetFileRequest{FileId: fileID})
		if err != nil {
			return nil, fmt.Errorf("GetFile polling failed: %w", err)
		}
		if fileInfo.Local != nil && fileInfo.Local.IsDownloadingCompleted {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	data, err := os.ReadFile(fileInfo.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileInfo.Local.Path, err)
	}
	return data, nil
}

// EarliestMessage листает историю диалога от новых к старым (не больше limit сообщений)
func (t *TelegramClient) EarliestMessage(ctx context.Context, ent domain.Entity, limit int) (time.Time, error) {
	if !ent.Resolved || limit <= 0 {
		return time.Time{}, nil
	}

	chatID := ent.ChatID
	if chatID == 0 && ent.Kind == domain.KindUser {
		chat, err := t.client.CreatePrivateChat(&client.CreatePrivateChatRequest{
			UserId: ent.ID,
			Force:  false,
		})
		if err != nil {
			return time.Time{}, fmt.Errorf("CreatePrivateChat: %w", err)
		}
		chatID = chat.Id
	}
	if chatID == 0 {
		return time.Time{}, nil
	}

	var (
		earliest time.Time
		from     int64
		scanned  int
	)
	for scanned < limit {
		if err := ctx.Err(); err != nil {
			return earliest, err
		}

		history, err := t.client.GetChatHistory(&client.GetChatHistoryRequest{
			ChatId:        chatID,
			FromMessageId: from,
			Offset:        0,
			Limit:         int32(min(historyPageSize, limit-scanned)),
			OnlyLocal:     false,
		})
		if err != nil {
			if isTooManyRequests(err) {
				return earliest, ErrRateLimited
			}
			return earliest, fmt.Errorf("GetChatHistory: %w", err)
		}
		if len(history.Messages) == 0 {
			break
		}

		prev := from
		for _, m := range history.Messages {
			if m == nil {
				continue
			}
			ts := time.Unix(int64(m.Date), 0).UTC()
			if earliest.IsZero() || ts.Before(earliest) {
				earliest = ts
			}
			from = m.Id
		}
		if from == prev {
			break
		}
		scanned += len(history.Messages)
	}

	t.logger.Debug("history scanned", "chat_id", chatID, "messages", scanned, "earliest", earliest)
	return earliest, nil
}

// isTooManyRequests TDLib отвечает ошибкой 429 ("Too Many Requests: retry after N")
func isTooManyRequests(err error) bool {
	var respErr client.ResponseError
	if !errors.As(err, &respErr) || respErr.Err == nil {
		return false
	}
	return respErr.Err.Code == 429 ||
		strings.HasPrefix(strings.ToUpper(respErr.Err.Message), "FLOOD_WAIT")
}
