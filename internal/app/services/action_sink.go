package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/pkg/eventlog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// ActionSink recebe as ações de UI produzidas pelo reconciliador. A entrega é
// fire-and-forget: não há retentativa nem confirmação.
type ActionSink interface {
	Deliver(ctx context.Context, actions []clan.Action) error
}

type webhookActionSink struct {
	client *http.Client
	url    string
	token  string
	log    waLog.Logger
}

// NewWebhookActionSink cria um sink que envia as ações para o gateway do frontend (URL fixa via env).
func NewWebhookActionSink(url, token string, client *http.Client, log waLog.Logger) ActionSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &webhookActionSink{client: client, url: strings.TrimSpace(url), token: strings.TrimSpace(token), log: log}
}

func (d *webhookActionSink) Deliver(ctx context.Context, actions []clan.Action) error {
	if len(actions) == 0 {
		return nil
	}
	if d == nil {
		return errors.New("action sink not configured")
	}
	if d.url == "" {
		if d.log != nil {
			d.log.Debugf("webhook de ações ignorado: URL vazia")
		}
		return nil
	}
	payload, err := json.Marshal(actions)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	if d.log != nil {
		d.log.Debugf("enviando %d ação(ões) para %s", len(actions), d.url)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if d.log != nil {
			d.log.Warnf("falha ao enviar ações: %v", err)
		}
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if d.log != nil {
			d.log.Warnf("webhook de ações retornou status %d", resp.StatusCode)
		}
		return fmt.Errorf("actions webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type auditActionSink struct {
	writer *eventlog.Writer
	log    waLog.Logger
}

// NewAuditActionSink grava cada ação no event log em disco.
func NewAuditActionSink(writer *eventlog.Writer, log waLog.Logger) ActionSink {
	return &auditActionSink{writer: writer, log: log}
}

func (s *auditActionSink) Deliver(ctx context.Context, actions []clan.Action) error {
	if !s.writer.Enabled() {
		return nil
	}
	var errs []error
	for _, action := range actions {
		if err := s.writer.Record(action.ClanID, string(action.Event), action); err != nil {
			if s.log != nil {
				s.log.Warnf("falha ao gravar ação %s: %v", action.NotificationID, err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type multiActionSink []ActionSink

// NewMultiActionSink entrega para todos os sinks não nulos, agregando os erros.
func NewMultiActionSink(sinks ...ActionSink) ActionSink {
	out := make(multiActionSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiActionSink) Deliver(ctx context.Context, actions []clan.Action) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, actions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
