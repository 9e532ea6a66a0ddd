package service

import (
	"context"
	"strings"
	"time"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/logger"
	"nau-assistant/pkg/apperror"
	"nau-assistant/pkg/canned"
	"nau-assistant/pkg/embedding"
	"nau-assistant/pkg/followup"
	"nau-assistant/pkg/knowledge"
	"nau-assistant/pkg/rag/response"
	"nau-assistant/pkg/rag/search"
	"nau-assistant/pkg/rag/session"
	"nau-assistant/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultChatId = "default"

	PathFollowUp  = "follow_up"
	PathCanned    = "canned"
	PathRetrieval = "retrieval"
)

const chatbotModule = "ChatbotService"

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context) ([]*dto.SessionSummaryResponse, error)
	GetChatHistory(ctx context.Context, sessionId string) ([]*dto.ChatMessageResponse, error)
	SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

// StoreSource exposes the live chunk store.
type StoreSource interface {
	Current() *knowledge.Store
}

type ChatbotOptions struct {
	TopK         int
	EmbedTimeout time.Duration
}

// chatbotService handles one turn at a time per session: the follow-up path,
// then canned answers, then retrieval.
type chatbotService struct {
	sessions  *session.Manager
	matcher   *canned.Matcher
	ranker    *search.Ranker
	index     StoreSource
	embedder  embedding.Provider
	generator *response.Generator
	logger    logger.ILogger
	tracer    trace.Tracer
	options   ChatbotOptions
}

func NewChatbotService(
	sessions *session.Manager,
	matcher *canned.Matcher,
	ranker *search.Ranker,
	index StoreSource,
	embedder embedding.Provider,
	generator *response.Generator,
	logger logger.ILogger,
	options ChatbotOptions,
) IChatbotService {
	return &chatbotService{
		sessions:  sessions,
		matcher:   matcher,
		ranker:    ranker,
		index:     index,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
		tracer:    otel.Tracer("nau-assistant/chatbot"),
		options:   options,
	}
}

func (cs *chatbotService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	id, err := cs.sessions.Create(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "chatbot.CreateSession", err)
	}
	return &dto.CreateSessionResponse{SessionId: id}, nil
}

func (cs *chatbotService) GetAllSessions(ctx context.Context) ([]*dto.SessionSummaryResponse, error) {
	summaries, err := cs.sessions.List(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "chatbot.GetAllSessions", err)
	}

	res := make([]*dto.SessionSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		res = append(res, &dto.SessionSummaryResponse{
			Id:        s.ID,
			Preview:   s.Preview,
			Timestamp: s.Timestamp,
		})
	}
	return res, nil
}

func (cs *chatbotService) GetChatHistory(ctx context.Context, sessionId string) ([]*dto.ChatMessageResponse, error) {
	msgs, err := cs.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "chatbot.GetChatHistory", err)
	}

	res := make([]*dto.ChatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, toMessageResponse(m))
	}
	return res, nil
}

func (cs *chatbotService) DeleteSession(ctx context.Context, sessionId string) error {
	if err := cs.sessions.Delete(ctx, sessionId); err != nil {
		return apperror.Wrap(apperror.KindInternal, "chatbot.DeleteSession", err)
	}
	return nil
}

// SendChat handles one user turn. The user message is always logged first
// and every path logs exactly one answer, so history stays consistent even
// when generation fails.
func (cs *chatbotService) SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if request == nil || strings.TrimSpace(request.Query) == "" {
		return nil, apperror.InvalidInput("chatbot.SendChat", "query is required")
	}
	query := strings.TrimSpace(request.Query)
	chatId := request.ChatId
	if chatId == "" {
		chatId = DefaultChatId
	}

	ctx, span := cs.tracer.Start(ctx, "chatbot.SendChat", trace.WithAttributes(
		attribute.String("chat.id", chatId),
		attribute.Bool("chat.follow_up_ref", request.FollowUpTo != ""),
	))
	defer span.End()

	unlock := cs.sessions.Lock(chatId)
	defer unlock()

	_, err := cs.sessions.Append(ctx, chatId, store.Message{
		Role:        store.RoleUser,
		Content:     query,
		FollowUpRef: request.FollowUpTo,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append user message")
		return nil, apperror.Wrap(apperror.KindInternal, "chatbot.SendChat", err)
	}

	var (
		res  *dto.SendChatResponse
		path string
	)
	if request.FollowUpTo != "" {
		res, err = cs.resolveFollowUp(ctx, chatId, query, request.FollowUpTo)
		path = PathFollowUp
	}
	if res == nil && err == nil {
		if entry, ok := cs.matcher.Match(query); ok {
			res, err = cs.answerCanned(ctx, chatId, query, entry)
			path = PathCanned
		} else {
			res, err = cs.answerRetrieval(ctx, chatId, query)
			path = PathRetrieval
		}
	}

	span.SetAttributes(attribute.String("chat.path", path))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append assistant message")
		return nil, apperror.Wrap(apperror.KindInternal, "chatbot.SendChat", err)
	}

	cs.logger.Info(chatbotModule, "Turn answered", map[string]interface{}{
		"chat_id": chatId,
		"path":    path,
		"sources": len(res.Sources),
	})
	return res, nil
}

// resolveFollowUp returns nil without error whenever the reference cannot be
// resolved, letting the caller fall through to the normal path.
func (cs *chatbotService) resolveFollowUp(ctx context.Context, chatId, reply, followUpId string) (*dto.SendChatResponse, error) {
	msgs, err := cs.sessions.Get(ctx, chatId)
	if err != nil {
		cs.logger.Warn(chatbotModule, "Cannot read history for follow-up", map[string]interface{}{"chat_id": chatId, "error": err.Error()})
		return nil, nil
	}

	question, ok := session.FindOriginalQuestion(msgs, followUpId)
	if !ok {
		cs.logger.Debug(chatbotModule, "Follow-up reference not found", map[string]interface{}{"chat_id": chatId, "follow_up_id": followUpId})
		return nil, nil
	}

	entry, ok := cs.matcher.Match(question)
	if !ok || !entry.HasFollowUp() {
		cs.logger.Debug(chatbotModule, "Original question has no follow-up", map[string]interface{}{"chat_id": chatId, "question": question})
		return nil, nil
	}

	answer := followup.Resolve(entry.FollowUp, reply)
	sources := append([]string(nil), entry.Sources...)

	_, err = cs.sessions.Append(ctx, chatId, store.Message{
		Role:               store.RoleAssistant,
		Content:            answer,
		Sources:            sources,
		IsFollowUpResponse: true,
		OriginalQuestion:   question,
	})
	if err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{Answer: answer, Sources: sources, ChatId: chatId}, nil
}

func (cs *chatbotService) answerCanned(ctx context.Context, chatId, query string, entry *canned.Entry) (*dto.SendChatResponse, error) {
	sources := append([]string(nil), entry.Sources...)

	_, err := cs.sessions.Append(ctx, chatId, store.Message{
		Role:             store.RoleAssistant,
		Content:          entry.Answer,
		Sources:          sources,
		OriginalQuestion: query,
	})
	if err != nil {
		return nil, err
	}

	res := &dto.SendChatResponse{Answer: entry.Answer, Sources: sources, ChatId: chatId}
	if !entry.HasFollowUp() {
		return res, nil
	}

	followUpId := session.NewFollowUpID()
	question := entry.FollowUp.Question()
	_, err = cs.sessions.Append(ctx, chatId, store.Message{
		Role:             store.RoleAssistant,
		Content:          question,
		IsFollowUp:       true,
		FollowUpID:       followUpId,
		OriginalQuestion: query,
	})
	if err != nil {
		return nil, err
	}

	res.FollowUp = question
	res.FollowUpId = followUpId
	return res, nil
}

func (cs *chatbotService) answerRetrieval(ctx context.Context, chatId, query string) (*dto.SendChatResponse, error) {
	chunks := cs.retrieve(ctx, query)
	answer := cs.generator.Generate(ctx, query, chunks)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("chat.retrieved_chunks", len(chunks)),
		attribute.Bool("chat.degraded", answer.Degraded),
	)
	if answer.Degraded {
		span.RecordError(answer.Err)
		cs.logger.Warn(chatbotModule, "Generation failed, answered with apology", map[string]interface{}{
			"chat_id": chatId,
			"chunks":  len(chunks),
			"error":   answer.Err.Error(),
		})
	}

	_, err := cs.sessions.Append(ctx, chatId, store.Message{
		Role:             store.RoleAssistant,
		Content:          answer.Text,
		Sources:          answer.Sources,
		OriginalQuestion: query,
		RetrievedChunks:  chunks,
	})
	if err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{Answer: answer.Text, Sources: answer.Sources, ChatId: chatId}, nil
}

// retrieve ranks the live store against the query. Embedding failures yield
// no chunks, which sends the turn down the no-context path.
func (cs *chatbotService) retrieve(ctx context.Context, query string) []search.ScoredChunk {
	current := cs.index.Current()
	if current == nil || current.Len() == 0 {
		return nil
	}

	embedCtx := ctx
	if cs.options.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, cs.options.EmbedTimeout)
		defer cancel()
	}

	vector, err := cs.embedder.Embed(embedCtx, query)
	if err != nil {
		cs.logger.Warn(chatbotModule, "Query embedding failed", map[string]interface{}{
			"error": apperror.Wrap(apperror.KindUpstreamFailure, "chatbot.retrieve", err).Error(),
		})
		return nil
	}

	chunks := cs.ranker.Rank(query, vector, current, cs.options.TopK)
	cs.logger.Debug(chatbotModule, "Chunks ranked", map[string]interface{}{
		"generation": current.Generation(),
		"candidates": current.Len(),
		"selected":   len(chunks),
	})
	return chunks
}

func toMessageResponse(m store.Message) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		Seq:                m.Seq,
		Role:               m.Role,
		Content:            m.Content,
		Timestamp:          m.Timestamp,
		Sources:            m.Sources,
		FollowUp:           m.IsFollowUp,
		FollowUpId:         m.FollowUpID,
		FollowUpTo:         m.FollowUpRef,
		IsFollowUpResponse: m.IsFollowUpResponse,
		OriginalQuestion:   m.OriginalQuestion,
		RetrievedChunks:    len(m.RetrievedChunks),
	}
}
