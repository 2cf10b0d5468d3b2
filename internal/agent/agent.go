// Package agent implements the tool-using turn loop: it prompts the model,
// parses tool tags out of each turn, executes retrieval tools inline, gates
// document mutations behind user confirmation, and streams progress to the
// caller as an ordered event sequence.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danpun9/memocore/internal/docstore"
	"github.com/danpun9/memocore/internal/llm"
	"github.com/danpun9/memocore/internal/log"
)

const (
	defaultMaxTurns = 5

	// agentSearchTopK is the tool-loop search depth, deliberately deeper than
	// the service default so the model sees enough context in one turn.
	agentSearchTopK = 10

	// inlineLimit caps how much document text is inlined into an observation.
	inlineLimit         = 20000
	truncationSuffix    = "\n...(truncated)"
	searchResultsHeader = "\nObservation:\n<search_results>\n"
	searchResultsFooter = "</search_results>"

	confirmContinueQuery = "Action executed successfully. The file has been updated. Do not verify. Do not use tools. Provide the Final Answer now."
	rejectObservation    = "\nObservation: User rejected the action."
	rejectContinueQuery  = "User rejected the action. Do not attempt to edit again. Do not use tools. Ask for new instructions."
)

// DocumentService is the slice of the retrieval layer the agent consumes.
// *retrieval.Service is the production implementation.
type DocumentService interface {
	Search(ctx context.Context, query string, topK int) ([]docstore.ScoredChunk, error)
	ReadDocument(ctx context.Context, fileName string) (string, bool, error)
	ListFileNames(ctx context.Context) ([]string, error)
	Create(ctx context.Context, title, content string) (string, error)
	Edit(ctx context.Context, title, newContent string) (string, error)
	Delete(ctx context.Context, title string) (string, error)
}

// Config contains the required parameters for the Agent.
type Config struct {
	Backend llm.Backend
	Docs    DocumentService
	Logger  log.Logger

	// MaxTurns bounds the tool loop. 0 means the default of 5.
	MaxTurns int
}

// Agent drives the conversation loop. Safe for concurrent use; all
// per-conversation state lives in the arguments and the returned channel.
type Agent struct {
	backend  llm.Backend
	docs     DocumentService
	logger   log.Logger
	maxTurns int
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("agent: backend is required")
	}
	if cfg.Docs == nil {
		return nil, fmt.Errorf("agent: document service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	return &Agent{
		backend:  cfg.Backend,
		docs:     cfg.Docs,
		logger:   logger,
		maxTurns: maxTurns,
	}, nil
}

// GenerateResponse runs the turn loop for one query against the committed
// history. The returned channel delivers status and streaming events followed
// by exactly one terminal event, then closes. Canceling ctx stops generation.
//
// History is read, never mutated: the caller owns appending the user query
// and the resulting model answer to its own conversation state.
func (a *Agent) GenerateResponse(ctx context.Context, history []ChatMessage, query string, systemQuery bool) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		a.run(ctx, &emitter{ctx: ctx, ch: ch}, history, query, systemQuery)
	}()
	return ch
}

// Confirm executes a pending action and re-enters generation so the model can
// phrase the final answer. It returns the event channel plus the history
// extended with the observation, which the caller commits.
func (a *Agent) Confirm(ctx context.Context, history []ChatMessage, action ToolAction) (<-chan Event, []ChatMessage) {
	observation := a.ExecuteAction(ctx, action)
	extended := append(append([]ChatMessage(nil), history...), ChatMessage{
		Role:    RoleSystem,
		Content: observation,
	})
	return a.GenerateResponse(ctx, extended, confirmContinueQuery, true), extended
}

// Reject dismisses a pending action without touching any document and
// re-enters generation so the model can ask for new instructions.
func (a *Agent) Reject(ctx context.Context, history []ChatMessage, action ToolAction) (<-chan Event, []ChatMessage) {
	a.logger.Info("action rejected", "action", action.Type.String(), "title", action.Title)
	extended := append(append([]ChatMessage(nil), history...), ChatMessage{
		Role:    RoleSystem,
		Content: rejectObservation,
	})
	return a.GenerateResponse(ctx, extended, rejectContinueQuery, true), extended
}

func (a *Agent) run(ctx context.Context, e *emitter, history []ChatMessage, query string, systemQuery bool) {
	if !e.status("Using " + a.backend.Name() + "...") {
		return
	}

	prompt := ""
	if a.backend.RequiresSystemPrompt() {
		prompt = SystemInstruction(time.Now()) + "\n\n"
	}
	prompt += buildPrompt(history, query, systemQuery)

	var (
		transcript string
		contexts   []RetrievedContext
	)
	seenSearches := make(map[string]struct{})

	for turn := 0; turn < a.maxTurns; {
		var turnText string

		a.logger.Debug("agent turn", "turn", turn, "prompt_len", len(prompt))
		err := a.backend.StreamResponse(ctx, prompt, func(cbCtx context.Context, delta string) error {
			turnText += delta
			return a.emitProgress(cbCtx, e, turnText)
		})
		if err != nil {
			e.fail(err)
			return
		}
		transcript += turnText

		switch {
		case strings.Contains(turnText, createOpenTag):
			body, ok := tagBody(turnText, createOpenTag, createCloseTag)
			if !ok {
				turn++
				continue
			}
			e.confirmation(&ToolAction{
				Type:    ActionCreate,
				Title:   childTag(body, "title"),
				Content: childTag(body, "content"),
			})
			return

		case strings.Contains(turnText, editOpenTag):
			body, ok := tagBody(turnText, editOpenTag, editCloseTag)
			if !ok {
				turn++
				continue
			}
			title := childTag(body, "title")
			original, found, err := a.docs.ReadDocument(ctx, resolveFileName(title))
			if err != nil {
				e.fail(err)
				return
			}
			e.confirmation(&ToolAction{
				Type:            ActionEdit,
				Title:           title,
				Content:         childTag(body, "content"),
				OriginalContent: original,
				OriginalKnown:   found,
			})
			return

		case strings.Contains(turnText, deleteOpenTag):
			body, ok := tagBody(turnText, deleteOpenTag, deleteCloseTag)
			if !ok {
				turn++
				continue
			}
			e.confirmation(&ToolAction{Type: ActionDelete, Title: childTag(body, "title")})
			return

		case tagComplete(turnText, searchOpenTag, searchCloseTag):
			body, _ := tagBody(turnText, searchOpenTag, searchCloseTag)
			searchQuery := strings.TrimSpace(body)

			if _, seen := seenSearches[searchQuery]; seen {
				systemMessage := "\nSystem: You have already searched for \"" + searchQuery + "\". Please do not search for the same thing again. Extract the answer from the previous Observation or state that you cannot find it."
				prompt += "\n" + turnText + systemMessage
				transcript += systemMessage
				turn++
				continue
			}
			seenSearches[searchQuery] = struct{}{}

			observation, err := a.searchObservation(ctx, searchQuery, &contexts)
			if err != nil {
				e.fail(err)
				return
			}
			prompt += "\n" + turnText + "\n" + observation + "\nSystem: Search results provided above. Do NOT search again. Answer the user query using the information above."
			transcript += observation
			turn++

		case strings.Contains(turnText, readOpenTag):
			body, ok := tagBody(turnText, readOpenTag, readCloseTag)
			if !ok {
				turn++
				continue
			}
			fileName := resolveFileName(childTag(body, "title"))

			content, found, err := a.docs.ReadDocument(ctx, fileName)
			if err != nil {
				e.fail(err)
				return
			}
			var observation string
			if found {
				observation = fmt.Sprintf("\nObservation: Content of '%s':\n%s", fileName, truncate(content))
			} else {
				observation = fmt.Sprintf("\nObservation: File '%s' not found.", fileName)
			}
			prompt += "\n" + turnText + "\n" + observation
			transcript += observation
			turn++

		case strings.Contains(turnText, listDocsTag):
			if !e.status("Listing documents...") {
				return
			}
			names, err := a.docs.ListFileNames(ctx)
			if err != nil {
				e.fail(err)
				return
			}
			listing := "No documents found."
			if len(names) > 0 {
				for i, name := range names {
					names[i] = "- " + name
				}
				listing = strings.Join(names, "\n")
			}
			observation := "\nObservation:\n<file_list>\n" + listing + "\n</file_list>"
			prompt += "\n" + turnText + "\n" + observation + "\nSystem: File list provided above."
			transcript += observation
			turn++

		default:
			answer := turnText
			if strings.Contains(turnText, finalAnswerMarker) {
				answer = trimLeadingSpace(textAfter(turnText, finalAnswerMarker))
			}
			e.final(answer, contexts)
			return
		}
	}

	// Turn budget exhausted: fall back to the last final answer seen across
	// the whole transcript, or the raw transcript when there is none.
	answer := transcript
	if strings.Contains(transcript, finalAnswerMarker) {
		answer = trimLeadingSpace(textAfterLast(transcript, finalAnswerMarker))
	}
	a.logger.Warn("turn budget exhausted", "max_turns", a.maxTurns)
	e.final(answer, contexts)
}

// searchObservation serves a search tool call. Queries naming a markdown file
// short-circuit to a whole-document read; everything else goes through vector
// search, appending each hit to the shared context list.
func (a *Agent) searchObservation(ctx context.Context, searchQuery string, contexts *[]RetrievedContext) (string, error) {
	if strings.HasSuffix(strings.ToLower(searchQuery), DocumentExtension) {
		content, found, err := a.docs.ReadDocument(ctx, searchQuery)
		if err != nil {
			return "", err
		}
		if found {
			var b strings.Builder
			b.WriteString(searchResultsHeader)
			b.WriteString("<result>\n")
			fmt.Fprintf(&b, "<file>%s</file>\n", searchQuery)
			fmt.Fprintf(&b, "<content>\n%s\n</content>\n", truncate(content))
			b.WriteString("</result>\n")
			b.WriteString(searchResultsFooter)
			return b.String(), nil
		}
	}

	results, err := a.docs.Search(ctx, searchQuery, agentSearchTopK)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(searchResultsHeader)
	for _, r := range results {
		b.WriteString("<result>\n")
		fmt.Fprintf(&b, "<file>%s</file>\n", r.FileName)
		fmt.Fprintf(&b, "<content>\n%s\n</content>\n", r.Text)
		b.WriteString("</result>\n")
		*contexts = append(*contexts, RetrievedContext{FileName: r.FileName, Text: r.Text})
	}
	b.WriteString(searchResultsFooter)
	return b.String(), nil
}

// emitProgress classifies the accumulated turn text on every delta and emits
// the matching status or streaming event.
func (a *Agent) emitProgress(ctx context.Context, e *emitter, accumulated string) error {
	var ev Event
	switch {
	case strings.Contains(accumulated, finalAnswerMarker):
		ev = Event{Type: EventStreaming, Text: trimLeadingSpace(textAfter(accumulated, finalAnswerMarker))}
	case strings.Contains(accumulated, searchOpenTag):
		partial := textBefore(textAfter(accumulated, searchOpenTag), searchCloseTag)
		if q := strings.TrimSpace(partial); q != "" {
			ev = Event{Type: EventStatus, Text: "Searching for '" + q + "'..."}
		} else {
			ev = Event{Type: EventStatus, Text: "Thinking..."}
		}
	case strings.Contains(accumulated, readOpenTag):
		ev = Event{Type: EventStatus, Text: "Reading document..."}
	case strings.Contains(accumulated, createOpenTag):
		ev = Event{Type: EventStatus, Text: "Creating document..."}
	case strings.Contains(accumulated, editOpenTag):
		ev = Event{Type: EventStatus, Text: "Editing document..."}
	case strings.Contains(accumulated, deleteOpenTag):
		ev = Event{Type: EventStatus, Text: "Deleting document..."}
	default:
		ev = Event{Type: EventStreaming, Text: accumulated}
	}

	select {
	case e.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// truncate caps text at the inline limit, marking the cut. The cut backs up
// to the nearest rune boundary so the prompt never carries a split character.
func truncate(text string) string {
	if len(text) <= inlineLimit {
		return text
	}
	cut := inlineLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncationSuffix
}

// DocumentExtension mirrors the retrieval layer's markdown extension; the
// agent resolves titles locally to keep the dependency one-way.
const DocumentExtension = ".md"

func resolveFileName(title string) string {
	if strings.HasSuffix(title, DocumentExtension) {
		return title
	}
	return title + DocumentExtension
}

// emitter sends events without blocking past context cancellation. Every send
// reports whether generation should continue.
type emitter struct {
	ctx context.Context
	ch  chan<- Event
}

func (e *emitter) send(ev Event) bool {
	select {
	case e.ch <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) status(text string) bool { return e.send(Event{Type: EventStatus, Text: text}) }

func (e *emitter) final(answer string, sources []RetrievedContext) {
	e.send(Event{Type: EventFinalAnswer, Text: answer, Sources: sources})
}

func (e *emitter) fail(err error) {
	e.send(Event{Type: EventError, Err: err})
}

func (e *emitter) confirmation(action *ToolAction) {
	e.send(Event{Type: EventConfirmationRequired, Action: action})
}
