package event

import "testing"

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"exact", "buffer.saved", "buffer.saved", true},
		{"exact mismatch", "buffer.saved", "buffer.closed", false},
		{"single wildcard", "buffer.created", "buffer.*", true},
		{"single wildcard too deep", "buffer.content.inserted", "buffer.*", false},
		{"single wildcard too shallow", "buffer", "buffer.*", false},
		{"tail wildcard direct child", "buffer.saved", "buffer.**", true},
		{"tail wildcard deep", "buffer.content.inserted", "buffer.**", true},
		{"tail wildcard zero segments", "buffer", "buffer.**", true},
		{"tail wildcard other root", "config.changed", "buffer.**", false},
		{"bare tail wildcard", "buffer.content.inserted", "**", true},
		{"mid wildcard then literal", "buffer.content.inserted", "buffer.*.inserted", true},
		{"mid wildcard literal mismatch", "buffer.content.deleted", "buffer.*.inserted", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.topic.Match(tt.pattern); got != tt.want {
				t.Errorf("Topic(%q).Match(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestTopicValid(t *testing.T) {
	tests := []struct {
		pattern Topic
		want    bool
	}{
		{"buffer.saved", true},
		{"buffer.*", true},
		{"buffer.**", true},
		{"**", true},
		{"", false},
		{"buffer..saved", false},
		{".buffer", false},
		{"buffer.", false},
		{"buffer.**.saved", false},
	}
	for _, tt := range tests {
		if got := tt.pattern.Valid(); got != tt.want {
			t.Errorf("Topic(%q).Valid() = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestBufferEventTopics(t *testing.T) {
	tests := []struct {
		ev   TopicProvider
		want Topic
	}{
		{BufferCreated{}, "buffer.created"},
		{BufferClosed{}, "buffer.closed"},
		{BufferContentInserted{}, "buffer.content.inserted"},
		{BufferContentDeleted{}, "buffer.content.deleted"},
		{BufferContentReplaced{}, "buffer.content.replaced"},
		{BufferRestored{}, "buffer.restored"},
		{BufferSaved{}, "buffer.saved"},
	}
	for _, tt := range tests {
		if got := tt.ev.EventTopic(); got != tt.want {
			t.Errorf("%T.EventTopic() = %q, want %q", tt.ev, got, tt.want)
		}
		if !tt.ev.EventTopic().Match("buffer.**") {
			t.Errorf("%T does not match buffer.**", tt.ev)
		}
	}
}
