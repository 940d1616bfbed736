// Package bridge relays wallet calls to a browser page over a websocket.
//
// The page holds the real injected wallet (for example Phantom) and connects
// to GET /v1/bridge. Frames are JSON:
//
//	page  -> server  {"event":"hello","payload":{"isPhantom":true,"isConnected":false,"publicKey":null}}
//	server -> page   {"id":"01H...","method":"connect","params":{"onlyIfTrusted":false}}
//	page  -> server  {"id":"01H...","result":{"publicKey":"..."}}
//	page  -> server  {"id":"01H...","error":{"code":4001,"message":"User rejected the request."}}
//	page  -> server  {"event":"accountChanged","payload":"..."}
//
// Only one page is active at a time. A newly attached page replaces the
// previous one, which is closed and reports disconnect to its listeners.
package bridge
