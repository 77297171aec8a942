package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestSubloggerNaming(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("chain")
	sub.Infow("accepted", "step", 3)

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "chain")
	test.That(t, entry.Message, test.ShouldEqual, "accepted")
	test.That(t, entry.ContextMap()["step"], test.ShouldEqual, int64(3))

	nested := sub.Sublogger("proposal")
	nested.Warn("retries exhausted")
	test.That(t, logs.All()[1].LoggerName, test.ShouldEqual, "chain.proposal")
}

func TestReplaceGlobal(t *testing.T) {
	orig := Global()
	defer ReplaceGlobal(orig)

	logger := NewBlankLogger("blank")
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
	Global().Info("dropped")
}
