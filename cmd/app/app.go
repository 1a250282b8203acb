package main

import "github.com/outletiq/reco-backend/internal/app"

//	@title			OutletIQ Recommendation API
//	@version		1.0
//	@description	Сервис рекомендаций: гибридная выдача, популярность и визуальный поиск по эмбеддингам товаров.
//	@BasePath		/api/v1
func main() {
	app.Run()
}
