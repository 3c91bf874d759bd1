package ai

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Options Gemini 客户端参数
type Options struct {
	APIKey            string
	ChatModel         string
	ClassifyModel     string
	EmbedModel        string
	Temperature       float32
	MaxOutputTokens   int32
	ClassifyMaxTokens int32
	RPMLimit          int
}

// Client 语言模型服务：短文本补全（意图分类）、流式生成、向量嵌入。
// 所有调用只发起一次，不做重试。
type Client struct {
	client            *genai.Client
	chatModel         string
	classifyModel     string
	embedModel        string
	temp              float32
	maxTokens         int32
	classifyMaxTokens int32
	limiter           *rate.Limiter
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPMLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RPMLimit)), opts.RPMLimit)
	}

	classifyModel := opts.ClassifyModel
	if classifyModel == "" {
		classifyModel = opts.ChatModel
	}

	return &Client{
		client:            client,
		chatModel:         opts.ChatModel,
		classifyModel:     classifyModel,
		embedModel:        opts.EmbedModel,
		temp:              opts.Temperature,
		maxTokens:         opts.MaxOutputTokens,
		classifyMaxTokens: opts.ClassifyMaxTokens,
		limiter:           limiter,
	}, nil
}

// Complete 单轮短输出补全，温度为 0，用于意图分类
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: c.classifyMaxTokens,
		ThinkingConfig:  &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.classifyModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return resp.Text(), nil
}

// Stream 流式生成回答，逐段产出文本
func (c *Client) Stream(ctx context.Context, p Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := c.limiter.Wait(ctx); err != nil {
			yield("", err)
			return
		}

		system, contents := toContents(p)
		cfg := &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(c.temp),
			MaxOutputTokens: c.maxTokens,
		}
		if system != "" {
			cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		}

		slog.Debug("streaming generation", "model", c.chatModel, "messages", len(contents))
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.chatModel, contents, cfg) {
			if err != nil {
				yield("", fmt.Errorf("stream generation: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// Embed 生成文本嵌入向量
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

// toContents 把 Prompt 转成 Gemini 格式：system 消息合并为 SystemInstruction，
// assistant 对应 model 角色。Gemini 不接受空 part，空消息跳过。
func toContents(p Prompt) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(p.Messages))
	for _, m := range p.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			if m.Content == "" {
				continue
			}
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			if m.Content == "" {
				continue
			}
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}
