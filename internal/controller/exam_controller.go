package controller

import (
	"encoding/json"
	"institute_backend/internal/model"
	"institute_backend/internal/service"
	"institute_backend/internal/util"
	"institute_backend/pkg/logger"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type ExamController struct {
	Service  *service.ExamService
	upgrader websocket.Upgrader
}

func NewExamController(svc *service.ExamService, allowedOrigins []string) *ExamController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ExamController{
		Service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

type AnswerReq struct {
	// Option 为 null 表示清除该题作答
	Option *int `json:"option"`
}

// taker 根据登录用户和 registrationNo 查询参数确定作答身份
func (c *ExamController) taker(ctx *gin.Context) (model.Taker, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return model.Taker{}, false
	}
	taker, err := c.Service.ResolveTaker(ctx.Request.Context(), user.UserID, ctx.Param("testId"), ctx.Query("registrationNo"))
	if err != nil {
		respondError(ctx, err)
		return model.Taker{}, false
	}
	return taker, true
}

func questionIndex(ctx *gin.Context) (int, bool) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		util.BadRequest(ctx, "invalid question index")
		return 0, false
	}
	return index, true
}

// @Summary 开始或恢复作答
// @Description 已保存的答案、标记和剩余时间会被恢复；题目数量变化时从空白开始
// @Tags 考试模块
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Param registrationNo query string false "报名号（正式考试）"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /exams/{testId}/session [post]
func (c *ExamController) OpenSession(ctx *gin.Context) {
	taker, ok := c.taker(ctx)
	if !ok {
		return
	}

	view, err := c.Service.Open(ctx.Request.Context(), ctx.Param("testId"), taker)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 获取当前作答状态
// @Tags 考试模块
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Param registrationNo query string false "报名号（正式考试）"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /exams/{testId}/session [get]
func (c *ExamController) GetSession(ctx *gin.Context) {
	taker, ok := c.taker(ctx)
	if !ok {
		return
	}

	view, err := c.Service.Resume(ctx.Request.Context(), ctx.Param("testId"), taker)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 作答
// @Tags 考试模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Param index path int true "题目序号（从0开始）"
// @Param registrationNo query string false "报名号（正式考试）"
// @Param body body AnswerReq true "选项序号，null 清除"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /exams/{testId}/session/answers/{index} [put]
func (c *ExamController) SetAnswer(ctx *gin.Context) {
	taker, ok := c.taker(ctx)
	if !ok {
		return
	}
	index, ok := questionIndex(ctx)
	if !ok {
		return
	}

	var req AnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.SetAnswer(ctx.Request.Context(), ctx.Param("testId"), taker, index, req.Option); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"index": index, "option": req.Option})
}

// @Summary 标记/取消标记待复查
// @Tags 考试模块
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Param index path int true "题目序号（从0开始）"
// @Param registrationNo query string false "报名号（正式考试）"
// @Success 200 {object} util.Response
// @Router /exams/{testId}/session/review/{index} [post]
func (c *ExamController) ToggleReview(ctx *gin.Context) {
	taker, ok := c.taker(ctx)
	if !ok {
		return
	}
	index, ok := questionIndex(ctx)
	if !ok {
		return
	}

	marked, err := c.Service.ToggleReview(ctx.Request.Context(), ctx.Param("testId"), taker, index)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"index": index, "markedForReview": marked})
}

// @Summary 交卷
// @Description 写入失败时返回 503 与 retryable，答题状态保留，可再次提交
// @Tags 考试模块
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Param registrationNo query string false "报名号（正式考试）"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /exams/{testId}/session/submit [post]
func (c *ExamController) Submit(ctx *gin.Context) {
	taker, ok := c.taker(ctx)
	if !ok {
		return
	}

	resultID, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("testId"), taker)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"resultId": resultID})
}

// @Summary 倒计时推送（WebSocket）
// @Description 推送 tick/expired/submitted/failed 事件，交卷后服务端关闭连接
// @Tags 考试模块
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Param token query string false "JWT（浏览器无法设置请求头时使用）"
// @Param registrationNo query string false "报名号（正式考试）"
// @Router /exams/{testId}/session/stream [get]
func (c *ExamController) Stream(ctx *gin.Context) {
	taker, ok := c.taker(ctx)
	if !ok {
		return
	}

	view, err := c.Service.View(ctx.Param("testId"), taker)
	if err != nil {
		respondError(ctx, err)
		return
	}
	events, cancel, err := c.Service.Subscribe(ctx.Param("testId"), taker)
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer cancel()

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// 读循环只处理 pong 与关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	first := service.SessionEvent{Type: service.EventTick, TimeLeft: view.TimeLeftSeconds, ResultID: view.ResultID}
	if err := writeEvent(conn, first); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev service.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
