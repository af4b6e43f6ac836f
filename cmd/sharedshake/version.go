package main

const sharedshakeVersion = "0.3.1"
