package api

// setupRoutes configures all API routes
func (s *Server) setupRoutes(auth *AuthConfig) {
	s.engine.GET("/", s.handleRoot)

	v := s.engine.Group("/api")
	{
		v.GET("/health", s.handleHealth)
		v.POST("/chat", s.handleChat)
		v.POST("/webhook/whatsapp", s.handleWhatsAppWebhook)

		users := v.Group("/users")
		users.Use(AuthMiddleware(auth))
		{
			users.GET("/:id", s.handleGetUser)
		}

		if s.news != nil {
			news := v.Group("/news")
			{
				news.GET("/trending", s.handleTrendingNews)
				news.GET("/category/:category", s.handleCategoryNews)
				news.POST("/search", s.handleSearchNews)
				news.GET("/markets", s.handleMarkets)
			}
		}

		if s.investments != nil {
			assistant := v.Group("/investments/assistant")
			{
				assistant.POST("/query", s.handleAssistantQuery)
				assistant.POST("/explain-product", s.handleExplainProduct)
				assistant.POST("/compare-products", s.handleCompareProducts)
			}
		}
	}
}
