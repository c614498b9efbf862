package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/replypilot/internal/application"
)

func TestClassifyCrisis(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "english end it all", text: "I want to end it all", want: true},
		{name: "english upper case", text: "SUICIDE is never the answer", want: true},
		{name: "curly apostrophe", text: "I can’t go on like this", want: true},
		{name: "ukrainian", text: "Я не хочу жити", want: true},
		{name: "ukrainian mixed case", text: "Депресія третій тиждень", want: true},
		{name: "panic attack pattern", text: "Had a Panic   Attack at work", want: true},
		{name: "ukrainian panic pattern", text: "знову панічна атака", want: true},
		{name: "neutral", text: "Love the new update!", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.ClassifyCrisis(tt.text))
		})
	}
}

func TestClassifySpam(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "dm for crypto", text: "DM me for crypto!!", want: true},
		{name: "follow for follow", text: "follow 4 follow?", want: true},
		{name: "check my bio", text: "check out my bio", want: true},
		{name: "casino ukrainian", text: "найкраще казино тут", want: true},
		{name: "foreign link", text: "see https://example.com/deal", want: true},
		{name: "foreign link lookalike", text: "https://threads.net.evil.io/x", want: true},
		{name: "threads link", text: "like I said in https://www.threads.net/@me/post/1", want: false},
		{name: "threads.com link", text: "https://threads.com/@me", want: false},
		{name: "instagram link", text: "https://instagram.com/p/abc", want: false},
		{name: "normal comment", text: "How does the sync work?", want: false},
		{name: "dm inside word", text: "admin formed a team", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.ClassifySpam(tt.text))
		})
	}
}
