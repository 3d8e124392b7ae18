package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/config"
	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/service/commands"
	client "github.com/mamadbah2/packwrap/pkg/clients/whatsapp"
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// DraftCreator turns a customer message into an order draft.
type DraftCreator interface {
	CreateDraft(ctx context.Context, ns, source, text string, assist bool) (models.OrderDraft, error)
}

const (
	sendTimeout = 10 * time.Second
	dedupeTTL   = 24 * time.Hour
)

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg      config.WhatsAppConfig
	client   client.Client
	drafts   DraftCreator
	commands commands.Dispatcher
	owner    string
	seen     *seenMessages
	logger   *zap.Logger
	now      func() time.Time
}

// NewMetaWhatsAppService wires a new service instance. Orders are drafted into
// the owner's books.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, drafts DraftCreator, dispatcher commands.Dispatcher, owner string, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:      cfg,
		client:   client,
		drafts:   drafts,
		commands: dispatcher,
		owner:    owner,
		seen:     newSeenMessages(dedupeTTL),
		logger:   logger,
		now:      time.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	if len(payload.Entry) == 0 {
		return nil
	}

	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}

			names := contactNames(change.Value.Contacts)
			for _, msg := range change.Value.Messages {
				if !s.seen.firstSeen(msg.ID, s.now()) {
					s.logger.Debug("skipping redelivered message", zap.String("message_id", msg.ID))
					continue
				}
				s.markRead(ctx, msg.ID)
				if err := s.handleInboundMessage(ctx, msg, names[msg.From]); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage, profileName string) error {
	text := strings.TrimSpace(extractMessageText(msg))
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("from", msg.From))
		return nil
	}

	cmd := models.ParseCommand(text)
	if cmd.Type != models.CommandOrder && s.isOwner(msg.From) {
		return s.handleCommand(ctx, msg, cmd)
	}

	draft, err := s.drafts.CreateDraft(ctx, s.owner, "whatsapp:"+msg.From, text, true)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}

	s.logger.Info("order draft created from whatsapp",
		zap.String("from", msg.From),
		zap.String("draft_id", draft.ID),
		zap.Strings("missing", draft.Order.Missing()))

	reply := orderAcknowledgement(draft, profileName)
	return s.send(ctx, msg.From, reply.Title+"\n"+reply.Message, msg.ID)
}

func (s *MetaWhatsAppService) handleCommand(ctx context.Context, msg models.InboundMessage, cmd models.Command) error {
	s.logger.Info("owner command received",
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.commands.HandleCommand(ctx, cmd, msg.From)
	if errors.Is(err, commands.ErrUnsupportedCommand) {
		reply, err = commands.HelpMessage(), nil
	}
	if err != nil {
		s.logger.Error("owner command failed", zap.Error(err), zap.String("command", string(cmd.Type)))
		reply = "Sorry, that command failed. Please try again later."
	}
	return s.send(ctx, msg.From, reply, msg.ID)
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

// NotifyOwner sends a message to the owner's WhatsApp number.
func (s *MetaWhatsAppService) NotifyOwner(ctx context.Context, message string) error {
	if s.cfg.OwnerPhone == "" {
		return errors.New("owner phone is not configured")
	}
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: s.cfg.OwnerPhone, Message: message})
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body, replyTo string) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:      to,
		Body:    body,
		ReplyTo: replyTo,
	})
	return err
}

func (s *MetaWhatsAppService) markRead(ctx context.Context, id string) {
	if id == "" {
		return
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.client.MarkRead(ctxWithTimeout, id); err != nil {
		s.logger.Warn("failed to mark message read", zap.Error(err), zap.String("message_id", id))
	}
}

func (s *MetaWhatsAppService) isOwner(from string) bool {
	return s.cfg.OwnerPhone != "" && normalizePhone(from) == normalizePhone(s.cfg.OwnerPhone)
}

func orderAcknowledgement(draft models.OrderDraft, profileName string) models.AutomationReply {
	greeting := "Thanks for your order!"
	if profileName != "" {
		greeting = fmt.Sprintf("Thanks for your order, %s!", profileName)
	}

	var b strings.Builder
	if summary := draft.Order.Text(); summary != "" {
		b.WriteString("We noted:\n")
		b.WriteString(summary)
	}
	if missing := draft.Order.Missing(); len(missing) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Please also send: " + strings.Join(missing, ", ") + ".")
	} else {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("We will confirm once it is handed to the courier.")
	}

	return models.AutomationReply{Title: greeting, Message: b.String()}
}

func contactNames(contacts []models.Contact) map[string]string {
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.WaID] = strings.TrimSpace(c.Profile.Name)
	}
	return names
}

func normalizePhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil && msg.Interactive.ButtonReply != nil {
		return msg.Interactive.ButtonReply.ID
	}

	if msg.Image != nil {
		return msg.Image.Caption
	}

	return ""
}
