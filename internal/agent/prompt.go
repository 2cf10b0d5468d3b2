package agent

import (
	"fmt"
	"strings"
	"time"
)

// systemInstructionTemplate teaches the model the tool vocabulary the turn
// loop parses. The %s slot carries the current time so the model can answer
// date-relative questions.
const systemInstructionTemplate = `You are Memocore, a smart document assistant.
**IMPORTANT: You MUST ALWAYS answer in the same language as the User's last message.**

System Current Time: %s

### TOOLS
Output the XML tag strictly.

1. **Search**: Find info by keywords.
   <search>keywords</search>

2. **Read Document**: Read the content of a specific file.
   <read_doc><title>filename.md</title></read_doc>

3. **Create Document**: Create a new file.
   <create_doc><title>filename.md</title><content>content</content></create_doc>

4. **Edit Document**: Overwrite ENTIRE file content.
   <edit_doc><title>filename.md</title><content>new content</content></edit_doc>

5. **Delete Document**: Delete a file.
   <delete_doc><title>filename.md</title></delete_doc>

### GUIDELINES
1. **Language**: Always match the user's language in the Final Answer.
2. **Edit Safety**:
   - Before using <edit_doc>, you MUST use <read_doc> to check the original content (unless the user provides the FULL new text).
   - Combine the original content with the user's request, then overwrite using <edit_doc>.
3. **Reasoning**: Start with ` + "`Thought:`" + ` to plan your action.
4. **Formatting**:
   - File titles must end with ` + "`.md`" + `.
   - Stop generating after closing an XML tag.
   - **Use ONLY ONE tool per turn.** Wait for an Observation before using another.

### EXAMPLES

User: "Add 'Buy eggs' to todo.md"
Assistant: Thought: The user wants to modify a file. I must read 'todo.md' first to append the new item.
<read_doc><title>todo.md</title></read_doc>
Observation: Content is: "- Buy milk"
Assistant: Thought: I will add 'Buy eggs' to the existing list and save it.
<edit_doc><title>todo.md</title><content>- Buy milk
- Buy eggs</content></edit_doc>
Observation: Document edited.
Assistant: Final Answer: I have added 'Buy eggs' to **todo.md**.

User: "오늘 회의록 만들어줘"
Assistant: Thought: 사용자가 한국어로 파일 생성을 요청했습니다. 내용은 아직 없으므로 빈 파일이나 기본 템플릿을 만듭니다.
<create_doc><title>meeting_notes.md</title><content># 회의록</content></create_doc>
Observation: Document created.
Assistant: Final Answer: **meeting_notes.md** 파일을 생성했습니다.

User: "search for 'invoice'"
Assistant: Thought: The user is searching for a keyword.
<search>invoice</search>

---`

// SystemInstruction renders the assistant's system instruction stamped with
// the given wall-clock time.
func SystemInstruction(now time.Time) string {
	return fmt.Sprintf(systemInstructionTemplate, now.Format("Monday, 2006-01-02 15:04"))
}

// buildPrompt serializes the committed conversation history followed by the
// current query. Provisional (still-streaming) messages are skipped. Sources
// attached to a model answer are replayed as context so follow-up questions
// can be answered without a second retrieval.
func buildPrompt(history []ChatMessage, query string, systemQuery bool) string {
	var b strings.Builder

	for _, m := range history {
		if m.Provisional {
			continue
		}
		switch m.Role {
		case RoleUser:
			fmt.Fprintf(&b, "User Query: %s\n", m.Content)
		case RoleModel:
			fmt.Fprintf(&b, "Model Answer: %s\n", m.Content)
			if len(m.Sources) > 0 {
				b.WriteString("Context from previous turn:\n")
				for _, src := range m.Sources {
					fmt.Fprintf(&b, "<file>%s</file>\n", src.FileName)
					fmt.Fprintf(&b, "<content>\n%s\n</content>\n", src.Text)
				}
			}
		case RoleSystem:
			fmt.Fprintf(&b, "[System Notification]: %s\n", m.Content)
		}
	}

	if systemQuery {
		fmt.Fprintf(&b, "[System Notification]: %s", query)
	} else {
		fmt.Fprintf(&b, "User Query: %s", query)
	}
	return b.String()
}
