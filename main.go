package main

import (
	"log"

	"github.com/GrainArc/MapStudio/config"
	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/routers"
	"github.com/gin-gonic/gin"
)

func main() {
	models.InitDB()

	r := gin.Default()
	r.MaxMultipartMemory = 500 << 20
	routers.GeoRouters(r)

	log.Printf("listening on %s", config.MainRouter)
	if err := r.Run(config.MainRouter); err != nil {
		log.Fatal(err)
	}
}
