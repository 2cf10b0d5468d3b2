package agent

import (
	"context"
	"fmt"
)

// ExecuteAction applies a confirmed action against the document service and
// renders the outcome as an observation for the model. Failures are reported
// as observations too, so the model can recover instead of the conversation
// dying on a tool error.
func (a *Agent) ExecuteAction(ctx context.Context, action ToolAction) string {
	result, err := a.applyAction(ctx, action)
	if err != nil {
		a.logger.Error("tool action failed",
			"action", action.Type.String(), "title", action.Title, "error", err)
		return fmt.Sprintf("Observation: Error executing action: %v", err)
	}
	a.logger.Info("tool action applied", "action", action.Type.String(), "title", action.Title)
	return "Observation: " + result
}

func (a *Agent) applyAction(ctx context.Context, action ToolAction) (string, error) {
	switch action.Type {
	case ActionCreate:
		fileName, err := a.docs.Create(ctx, action.Title, action.Content)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Document '%s' created successfully.", fileName), nil

	case ActionEdit:
		fileName, err := a.docs.Edit(ctx, action.Title, action.Content)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Document '%s' updated successfully.", fileName), nil

	case ActionDelete:
		fileName, err := a.docs.Delete(ctx, action.Title)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Document '%s' deleted successfully.", fileName), nil

	case ActionList:
		return "Listed documents.", nil

	default:
		return "", fmt.Errorf("unknown action type %d", action.Type)
	}
}
