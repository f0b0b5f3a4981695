package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/blinkpay/service/links"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Client is the production Confirmer backed by Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClient connects to Temporal. timeout bounds each confirmation workflow;
// zero uses DefaultConfirmationTimeout.
func NewClient(host, namespace, taskQueue string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return newClient(c, taskQueue, timeout, logger), nil
}

func newClient(c client.Client, taskQueue string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	return &Client{
		client:    c,
		taskQueue: taskQueue,
		timeout:   timeout,
		logger:    logger,
	}
}

// StartConfirmation starts AwaitConfirmationWorkflow for a submitted payment.
// Starting the same (linkID, signature) twice returns the existing workflow id,
// whether that workflow is still running or already finished.
func (c *Client) StartConfirmation(ctx context.Context, linkID, signature string, expected *links.ExpectedPayment) (string, error) {
	id := ConfirmationWorkflowID(linkID, signature)

	c.logger.DebugContext(ctx, "starting confirmation workflow",
		"link_id", linkID,
		"signature", signature,
		"workflow_id", id,
	)

	opts := client.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: c.timeout + time.Minute,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		Memo: map[string]interface{}{
			"link_id":    linkID,
			"signature":  signature,
			"created_by": "blinkpay",
		},
	}

	input := AwaitConfirmationInput{
		LinkID:    linkID,
		Signature: signature,
		Expected:  expected,
		Timeout:   c.timeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, opts, AwaitConfirmationWorkflow, input)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			c.logger.DebugContext(ctx, "confirmation workflow already exists", "workflow_id", id)
			return id, nil
		}
		c.logger.ErrorContext(ctx, "failed to start confirmation workflow",
			"workflow_id", id,
			"error", err,
		)
		return "", fmt.Errorf("failed to start workflow %q: %w", id, err)
	}

	c.logger.InfoContext(ctx, "confirmation workflow started",
		"link_id", linkID,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// GetConfirmation reports the state of a confirmation workflow without blocking.
func (c *Client) GetConfirmation(ctx context.Context, workflowID string) (*ConfirmationStatus, error) {
	linkID, signature, ok := ParseConfirmationWorkflowID(workflowID)
	if !ok {
		return nil, ErrConfirmationNotFound
	}

	status := &ConfirmationStatus{
		WorkflowID: workflowID,
		LinkID:     linkID,
		Signature:  signature,
	}

	desc, err := c.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrConfirmationNotFound
		}
		return nil, fmt.Errorf("failed to describe workflow %q: %w", workflowID, err)
	}

	switch desc.GetWorkflowExecutionInfo().GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		status.State = StateRunning
		return status, nil

	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var result AwaitConfirmationResult
		if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
			return nil, fmt.Errorf("failed to read workflow result %q: %w", workflowID, err)
		}
		status.State = result.Status
		status.ConfirmationStatus = result.ConfirmationStatus
		status.Slot = result.Slot
		status.Error = result.Error
		return status, nil

	default:
		msg := fmt.Sprintf("workflow ended with status %s", desc.GetWorkflowExecutionInfo().GetStatus())
		status.State = StateError
		status.Error = &msg
		return status, nil
	}
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
