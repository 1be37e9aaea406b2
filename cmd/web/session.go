package main

type sessionKey string

// conversationIDSessionKey holds the identifier that ties a browser to its screening.
const conversationIDSessionKey = sessionKey("conversationID")

const conversationIDLength = 32
