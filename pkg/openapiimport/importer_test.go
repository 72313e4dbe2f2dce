package openapiimport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-widgetsync/pkg/openapiimport"
	"github.com/goliatone/go-widgetsync/pkg/param"
)

const quizSpec = `openapi: 3.0.3
info:
  title: Quiz Service
  version: 1.0.0
paths: {}
components:
  schemas:
    QuizConfig:
      type: object
      required: [title]
      properties:
        title:
          type: string
          title: Quiz title
          default: Quiz
        accent:
          type: string
          format: color
          default: "#3366ff"
        cover:
          type: string
          format: uri
        difficulty:
          type: string
          enum: [easy, medium, hard]
          default: easy
        timer:
          type: object
          title: Timer
          properties:
            enabled:
              type: boolean
              default: false
            duration:
              type: number
              minimum: 5
              maximum: 600
              multipleOf: 5
              default: 60
    DifficultyName:
      type: string
      enum: [easy, medium, hard]
`

func TestComponent_MapsTypesFormatsAndEnums(t *testing.T) {
	schema, err := openapiimport.Component(context.Background(), []byte(quizSpec), "QuizConfig")
	require.NoError(t, err)

	title, ok := schema.Get("title")
	require.True(t, ok)
	assert.Equal(t, param.KindString, title.Type)
	assert.True(t, title.Required)
	assert.Equal(t, "Quiz title", title.Label)

	accent, _ := schema.Get("accent")
	assert.Equal(t, param.KindColor, accent.Type)

	cover, _ := schema.Get("cover")
	assert.Equal(t, param.KindImage, cover.Type)

	difficulty, _ := schema.Get("difficulty")
	require.Equal(t, param.KindSelect, difficulty.Type)
	assert.Len(t, difficulty.Options, 3)
	assert.Equal(t, "easy", difficulty.Default)

	duration, ok := schema.FieldAt("timer.duration")
	require.True(t, ok)
	require.Equal(t, param.KindNumber, duration.Type)
	require.NotNil(t, duration.Min)
	require.NotNil(t, duration.Max)
	assert.Equal(t, float64(5), *duration.Min)
	assert.Equal(t, float64(600), *duration.Max)
	require.NotNil(t, duration.Step)
	assert.Equal(t, float64(5), *duration.Step)

	timer, _ := schema.Get("timer")
	require.True(t, timer.IsFolder())
	assert.Equal(t, "Timer", timer.Title)
}

func TestComponents_SkipsNonObjects(t *testing.T) {
	components, err := openapiimport.Components(context.Background(), []byte(quizSpec))
	require.NoError(t, err)
	assert.NotContains(t, components, "DifficultyName")
	assert.Contains(t, components, "QuizConfig")
}

func TestComponent_UnknownName(t *testing.T) {
	_, err := openapiimport.Component(context.Background(), []byte(quizSpec), "Nope")
	require.Error(t, err)
}

func TestComponents_EmptyDocument(t *testing.T) {
	_, err := openapiimport.Components(context.Background(), nil)
	require.Error(t, err)
}
