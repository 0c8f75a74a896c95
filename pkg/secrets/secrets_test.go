package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Cache ---

func TestCache_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Put("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.NotContains(t, c.data, "k", "expired entry evicted on read")
}

func TestCache_Bust(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Bust("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

// --- EnvProvider ---

func TestEnvProvider_GetSecret(t *testing.T) {
	p := &EnvProvider{environ: func() []string {
		return []string{
			"DEV_DEFAULT_EARTHRANGER_USERNAME=ranger",
			"DEV_DEFAULT_EARTHRANGER_PASSWORD=pw",
			"DEV_DEFAULT_EARTHRANGER_TOKEN=",
			"DEV_OTHER_EARTHRANGER_USERNAME=nope",
			"PATH=/bin",
		}
	}}

	got, err := p.GetSecret(context.Background(), "dev/default/earthranger")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "ranger", "password": "pw"}, got)

	_, err = p.GetSecret(context.Background(), "prod/default/earthranger")
	assert.Error(t, err)

	_, err = p.ListSecrets(context.Background(), "dev/")
	assert.Error(t, err)
}

// --- AWS provider against a fake client ---

type fakeSM struct {
	secrets map[string]string
	pages   [][]string
}

func (f *fakeSM) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f.secrets[aws.ToString(in.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func (f *fakeSM) ListSecrets(_ context.Context, in *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	idx := 0
	if in.NextToken != nil {
		idx = int((*in.NextToken)[0] - '0')
	}
	out := &secretsmanager.ListSecretsOutput{}
	for _, n := range f.pages[idx] {
		out.SecretList = append(out.SecretList, smtypes.SecretListEntry{Name: aws.String(n)})
	}
	if idx+1 < len(f.pages) {
		out.NextToken = aws.String(string(rune('0' + idx + 1)))
	}
	return out, nil
}

func TestAWSProvider_GetSecret(t *testing.T) {
	p := NewAWSProviderWithClient(&fakeSM{secrets: map[string]string{
		"dev/default/earthranger": `{"username":"ranger","password":"pw"}`,
		"dev/broken/earthranger":  `not json`,
	}})

	got, err := p.GetSecret(context.Background(), "dev/default/earthranger")
	require.NoError(t, err)
	assert.Equal(t, "ranger", got["username"])

	_, err = p.GetSecret(context.Background(), "dev/broken/earthranger")
	assert.ErrorContains(t, err, "invalid secret format")

	_, err = p.GetSecret(context.Background(), "dev/missing/earthranger")
	assert.ErrorContains(t, err, "failed to fetch secret")
}

func TestAWSProvider_ListSecretsPaginates(t *testing.T) {
	p := NewAWSProviderWithClient(&fakeSM{pages: [][]string{
		{"dev/a/earthranger"},
		{"dev/b/earthranger", "dev/c/other"},
	}})

	names, err := p.ListSecrets(context.Background(), "dev/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev/a/earthranger", "dev/b/earthranger", "dev/c/other"}, names)
}
