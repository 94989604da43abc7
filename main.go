package main

import "vigil/cmd"

// @title vigil API
// @version 0.3.0
// @description Video sources, detections and inference tasks.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}
