package notify

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback actions carried in inline keyboard button data. The wire
// form is "<action>:<request id>".
const (
	CBApprove       = "approve"
	CBReject        = "reject"
	CBChange        = "change"
	CBFinish        = "finish"
	CBConfirm       = "confirm"
	CBDecline       = "decline"
	CBCounter       = "counter"
	CBWithdraw      = "withdraw"
	CBKeepOriginal  = "keep_original"
	CBKeepProposed  = "keep_proposed"
	CBAcceptCounter = "accept_counter"
	CBRejectCounter = "reject_counter"
	CBView          = "view"
	CBEdit          = "edit"
	CBDelete        = "delete"
)

// CallbackData encodes an action on a request for button payloads.
func CallbackData(action string, id int64) string {
	return fmt.Sprintf("%s:%d", action, id)
}

// ParseCallback decodes button data back into an action and request id.
func ParseCallback(data string) (string, int64, error) {
	idx := strings.LastIndex(data, ":")
	if idx <= 0 || idx == len(data)-1 {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	id, err := strconv.ParseInt(data[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed callback data %q: %w", data, err)
	}
	return data[:idx], id, nil
}
