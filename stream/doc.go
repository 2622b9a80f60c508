// Package stream multiplexes newline-delimited JSON HTTP streams.
//
// A Multiplexer keeps at most one open connection per Key (endpoint plus
// serialized parameters). Every Create for a key that is already open
// attaches another Listener to the same Stream instead of dialing again,
// and opening beyond the configured ceiling fails with TOO_MANY_STREAMS.
//
// Each Stream has one reader goroutine. It frames bytes into lines with a
// Framer, decodes each line as JSON and fans the result out to listeners
// through unbounded queues, so a slow consumer never stalls the reader or
// the other listeners. Malformed lines are logged and dropped.
//
// A stream ends in one of three ways:
//
//   - the server closes the body: the buffered tail is flushed, an EventEnd
//     is delivered and the stream is torn down;
//   - the connection fails: an EventError carrying STREAM_TRANSPORT is
//     delivered and the stream is torn down;
//   - Close or CloseAll is called: the stream is torn down without a final
//     event.
//
// Teardown runs once. It releases the ceiling slot, removes the stream from
// the registry, closes the connection and closes every listener's channel.
//
//	mux, _ := stream.New(stream.Config{MaxConcurrent: 10}, stream.NewHTTPOpener(hc))
//	l, err := mux.Create(ctx, "/v1/quotes/stream", map[string]string{"symbols": "AAPL"})
//	if err != nil {
//	    return err
//	}
//	defer l.Close()
//	for ev := range l.Events() {
//	    switch ev.Type {
//	    case stream.EventData:
//	        handle(ev.Raw)
//	    case stream.EventError:
//	        return ev.Err
//	    }
//	}
package stream
