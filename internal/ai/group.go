package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type groupMemberConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type groupConfig struct {
	Providers []groupMemberConfig `json:"providers"`
}

// groupProvider tries its members in order and returns the first success.
type groupProvider struct {
	members []IAIProvider
}

func (p *groupProvider) Name() string {
	return "group"
}

func (p *groupProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	return p.call(ctx, func(member IAIProvider) (string, error) {
		return member.Generate(ctx, model, prompt)
	})
}

func (p *groupProvider) GenerateJSON(ctx context.Context, model string, prompt string) (string, error) {
	return p.call(ctx, func(member IAIProvider) (string, error) {
		return member.GenerateJSON(ctx, model, prompt)
	})
}

func (p *groupProvider) call(ctx context.Context, fn func(member IAIProvider) (string, error)) (string, error) {
	var lastErr error
	for _, member := range p.members {
		result, err := fn(member)
		if err == nil {
			return result, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("ai provider failed, trying next",
			zap.String("provider", member.Name()), zap.Error(err))
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return "", fmt.Errorf("all providers in group failed: %w", lastErr)
}

type groupEmbedProvider struct {
	members []IEmbedProvider
}

func (p *groupEmbedProvider) Name() string {
	return "group"
}

func (p *groupEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	var lastErr error
	for _, member := range p.members {
		values, err := member.Embed(ctx, model, text, taskType)
		if err == nil {
			return values, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embed provider failed, trying next",
			zap.String("provider", member.Name()), zap.Error(err))
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return nil, fmt.Errorf("all embed providers in group failed: %w", lastErr)
}

func createGroupFactory(args interface{}) (IAIProvider, error) {
	cfg := &groupConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("group provider requires at least one member")
	}
	members := make([]IAIProvider, 0, len(cfg.Providers))
	for _, member := range cfg.Providers {
		if member.Provider == "group" {
			return nil, fmt.Errorf("nested group providers are not supported")
		}
		provider, err := NewProvider(member.Provider, member.Data)
		if err != nil {
			return nil, fmt.Errorf("create group member %s: %w", member.Provider, err)
		}
		members = append(members, provider)
	}
	return &groupProvider{members: members}, nil
}

func createGroupEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &groupConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("group provider requires at least one member")
	}
	members := make([]IEmbedProvider, 0, len(cfg.Providers))
	for _, member := range cfg.Providers {
		if member.Provider == "group" {
			return nil, fmt.Errorf("nested group providers are not supported")
		}
		provider, err := NewEmbedProvider(member.Provider, member.Data)
		if err != nil {
			return nil, fmt.Errorf("create group member %s: %w", member.Provider, err)
		}
		members = append(members, provider)
	}
	return &groupEmbedProvider{members: members}, nil
}

func init() {
	Register("group", createGroupFactory)
	RegisterEmbed("group", createGroupEmbedFactory)
}
