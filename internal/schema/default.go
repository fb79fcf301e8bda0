package schema

import "encoding/json"

// Prefix is the namespace every current application key lives under.
const Prefix = "studyhub-"

// Default returns the application's registry.
func Default() *Registry {
	return &Registry{
		Known: map[string]KeySpec{
			"studyhub-tasks":          {Kind: KindArray, Default: `[]`},
			"studyhub-notes":          {Kind: KindArray, Default: `[]`},
			"studyhub-flashcards":     {Kind: KindArray, Default: `[]`},
			"studyhub-events":         {Kind: KindArray, Default: `[]`},
			"studyhub-documents":      {Kind: KindArray, Default: `[]`},
			"studyhub-chat-history":   {Kind: KindArray, Default: `[]`},
			"studyhub-mentor-config":  {Kind: KindObject, Default: `{}`},
			"studyhub-settings":       {Kind: KindObject, Default: `{}`},
			"studyhub-theme":          {Kind: KindString, Default: `"dark"`},
			"studyhub-onboarded":      {Kind: KindBoolean, Default: `false`},
			"studyhub-pomodoro-work":  {Kind: KindString, Default: `"25"`},
			"studyhub-break-duration": {Kind: KindString, Default: `"5"`},
			"studyhub-sweep-history":  {Kind: KindArray, Default: `[]`},
			"studyhub-last-sweep":     {Kind: KindString, Default: `""`},
		},
		Migrations: []Migration{
			{Old: "tasks", New: "studyhub-tasks"},
			{Old: "notes", New: "studyhub-notes"},
			{Old: "studyhub_flashcards", New: "studyhub-flashcards"},
			{Old: "mentor-config", New: "studyhub-mentor-config"},
		},
		Prefixes: []string{Prefix},
		StaleKeys: []string{
			"studyhub-streak-legacy",
			"studyhub-gamification",
			"studyhub-leaderboard-cache",
			"studyhub-v1-cache",
		},
		RecordArrays: []string{
			"studyhub-tasks",
			"studyhub-notes",
			"studyhub-flashcards",
			"studyhub-events",
			"studyhub-documents",
		},
		MentorConfig: ObjectConfig{
			Key: "studyhub-mentor-config",
			Fields: []FieldRule{
				{Name: "mentorName", Type: FieldString, Default: "Sage"},
				{Name: "dailyGoalMinutes", Type: FieldNumber, Default: 60},
				{Name: "tone", Type: FieldString, Default: "encouraging"},
			},
		},
		BoundedSettings: []BoundedSetting{
			{Key: "studyhub-pomodoro-work", Min: 1, Max: 180, Fallback: "25"},
			{Key: "studyhub-break-duration", Min: 1, Max: 60, Fallback: "5"},
		},
		Services: []Service{
			{
				Name:           "tutor",
				Endpoint:       "v1/chat/completions",
				Payload:        json.RawMessage(`{"messages":[{"role":"user","content":"ping"}],"max_tokens":1}`),
				OfflineFlag:    "studyhub-tutor-offline",
				DefaultBaseURL: "https://api.openai.com",
			},
			{
				Name:           "sync",
				Endpoint:       "sync/ping",
				Payload:        json.RawMessage(`{"ping":true}`),
				OfflineFlag:    "studyhub-sync-offline",
				DefaultBaseURL: "https://sync.studyhub.app",
			},
		},
		HistoryKey:   "studyhub-sweep-history",
		LastSweepKey: "studyhub-last-sweep",
	}
}
