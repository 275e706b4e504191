package notify

import "errors"

var ErrBufferFull = errors.New("mail buffer is full")
