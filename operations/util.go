package operations

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

func writeJSON(w io.Writer, data interface{}) error {
	out, err := json.MarshalIndent(data, "", "   ")
	if err != nil {
		return errors.Wrap(err, "problem writing data")
	}

	if _, err = w.Write(out); err != nil {
		return errors.WithStack(err)
	}

	_, err = io.WriteString(w, "\n")
	return errors.WithStack(err)
}
