package session

import (
	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/hrygo/tutorvoice/plugin/ai"
)

func encodeHistory(history ai.History) (string, error) {
	if history == nil {
		history = ai.History{}
	}
	data, err := sonic.ConfigStd.MarshalToString(history)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal history")
	}
	return data, nil
}

func decodeHistory(data string) (ai.History, error) {
	history := ai.History{}
	if data == "" {
		return history, nil
	}
	if err := sonic.ConfigStd.UnmarshalFromString(data, &history); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal history")
	}
	return history, nil
}
