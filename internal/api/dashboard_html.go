package api

import "net/http"

// dashboardHandler serves the embedded single page console. All state comes
// from polling /ui/state.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>경북 관련사업 대시보드</title>
<style>
*,*::before,*::after{box-sizing:border-box;margin:0;padding:0}
:root{
  --bg:#f6f8fa;--bg-card:#ffffff;--bg-card-hover:#f3f4f6;--bg-input:#f0f1f3;
  --border:#d0d7de;--text:#1f2328;--text-muted:#656d76;--text-dim:#8b949e;
  --primary:#0969da;--primary-hover:#0550ae;
  --green:#1a7f37;--red:#cf222e;--yellow:#9a6700;--orange:#bc4c00;
  --radius:8px;--radius-sm:4px;
}
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI","Noto Sans KR",Helvetica,Arial,sans-serif;background:var(--bg);color:var(--text);line-height:1.5;min-height:100vh}
a{color:var(--primary);text-decoration:none}
button{cursor:pointer;font-family:inherit;font-size:inherit}
.container{max-width:1400px;margin:0 auto;padding:0 24px 96px}
header{background:var(--bg-card);border-bottom:1px solid var(--border);padding:12px 24px;position:sticky;top:0;z-index:100}
.header-inner{max-width:1400px;margin:0 auto;display:flex;align-items:center;gap:16px}
.header-title{font-size:20px;font-weight:700}
.header-badges{margin-left:auto;display:flex;gap:8px}
.badge{display:inline-flex;align-items:center;gap:4px;padding:2px 10px;border-radius:12px;font-size:12px;font-weight:600;border:1px solid var(--border)}
.badge-healthy{color:var(--green);border-color:var(--green)}
.badge-unhealthy{color:var(--red);border-color:var(--red)}

.summary{display:grid;grid-template-columns:repeat(5,1fr);gap:16px;margin:24px 0}
.card{background:var(--bg-card);border:1px solid var(--border);border-radius:var(--radius);padding:20px}
.card-label{font-size:12px;color:var(--text-muted);margin-bottom:4px}
.card-value{font-size:28px;font-weight:700;line-height:1.2}

.filters{display:grid;grid-template-columns:repeat(4,1fr) 2fr;gap:12px;margin-bottom:12px}
.filters select,.filters input{background:var(--bg-input);color:var(--text);border:1px solid var(--border);border-radius:var(--radius-sm);padding:8px 10px;font-size:14px;outline:none;width:100%}
.toolbar{display:flex;align-items:center;gap:12px;margin-bottom:16px;flex-wrap:wrap}
.toolbar .range{display:flex;align-items:center;gap:6px;font-size:13px;color:var(--text-muted)}
.toolbar .range input{width:70px;background:var(--bg-input);border:1px solid var(--border);border-radius:var(--radius-sm);padding:4px 6px}
.toolbar .spacer{flex:1}
.btn{display:inline-flex;align-items:center;gap:6px;padding:8px 16px;border-radius:var(--radius);font-size:14px;font-weight:500;border:1px solid var(--border);background:var(--bg-card);color:var(--text)}
.btn:hover{background:var(--bg-card-hover)}
.btn-primary{background:var(--primary);border-color:var(--primary);color:#fff}
.btn-primary:hover{background:var(--primary-hover)}
.btn:disabled{opacity:.5;cursor:default}

.table-wrap{background:var(--bg-card);border:1px solid var(--border);border-radius:var(--radius);overflow:auto}
table{width:100%;border-collapse:collapse;font-size:14px}
th{text-align:left;padding:12px 16px;font-weight:600;color:var(--text-muted);border-bottom:1px solid var(--border);white-space:nowrap;font-size:12px}
td{padding:10px 16px;border-bottom:1px solid var(--border)}
tbody tr:hover{background:var(--bg-card-hover)}
td.cb-cell,th.cb-cell{width:40px;text-align:center;padding:10px 8px}
.grade{padding:2px 8px;border-radius:12px;font-size:12px;font-weight:600}
.grade-a{color:var(--red);background:rgba(207,34,46,.1)}
.grade-b{color:var(--orange);background:rgba(188,76,0,.1)}
.grade-c{color:var(--green);background:rgba(26,127,55,.1)}
.score-high{color:var(--red);font-weight:700}
.score-medium{color:var(--orange);font-weight:600}
.score-low{color:var(--text-muted)}
.empty-state{text-align:center;padding:60px 20px;color:var(--text-muted)}

.pagination{display:flex;justify-content:center;gap:4px;margin:16px 0}
.pagination button{min-width:36px;padding:4px 10px;border:1px solid var(--border);border-radius:var(--radius-sm);background:var(--bg-card)}
.pagination button.current{background:var(--primary);border-color:var(--primary);color:#fff}
.pagination span{padding:4px 6px;color:var(--text-dim)}

.selection-bar{position:fixed;bottom:0;left:0;right:0;background:var(--bg-card);border-top:1px solid var(--border);padding:12px 24px;display:flex;align-items:center;gap:12px;z-index:150;flex-wrap:wrap}
.selection-bar .count{font-weight:600}
.chip{display:inline-flex;align-items:center;gap:4px;padding:2px 8px;border-radius:12px;font-size:12px;background:var(--bg-input)}
.chip button{background:none;border:none;color:var(--text-muted)}
.progress{width:200px;height:8px;background:var(--border);border-radius:4px;overflow:hidden}
.progress div{height:100%;background:var(--primary);transition:width .3s}

.modal-overlay{position:fixed;inset:0;background:rgba(0,0,0,.5);z-index:200;display:none;align-items:center;justify-content:center}
.modal-overlay.open{display:flex}
.modal{background:var(--bg-card);border:1px solid var(--border);border-radius:var(--radius);width:90%;max-width:700px;max-height:85vh;overflow-y:auto;padding:24px}
.modal h2{margin-bottom:16px;display:flex;align-items:center}
.modal-close{margin-left:auto;background:none;border:none;color:var(--text-muted);font-size:20px}
.detail-grid{display:grid;grid-template-columns:repeat(2,1fr);gap:8px}
.detail-item .label{font-size:11px;color:var(--text-dim)}
.detail-item .value{font-size:14px;font-weight:500}

.toast{position:fixed;bottom:80px;right:20px;z-index:400;padding:12px 16px;border-radius:var(--radius);font-size:14px;font-weight:500;box-shadow:0 4px 12px rgba(0,0,0,.2);min-width:280px;background:var(--bg-card);display:none}
.toast.show{display:block}
.toast-success{border:1px solid var(--green);color:var(--green)}
.toast-error{border:1px solid var(--red);color:var(--red)}
.toast-warning{border:1px solid var(--yellow);color:var(--yellow)}
.toast-info{border:1px solid var(--primary);color:var(--primary)}
@media(max-width:900px){.summary{grid-template-columns:repeat(2,1fr)}.filters{grid-template-columns:1fr 1fr}}
</style>
</head>
<body>

<header>
  <div class="header-inner">
    <div class="header-title">경북 관련사업 대시보드</div>
    <div class="header-badges"><span class="badge" id="healthBadge">-</span></div>
  </div>
</header>

<div class="container">
  <div class="summary">
    <div class="card"><div class="card-label">전체 사업</div><div class="card-value" id="statTotal">0</div></div>
    <div class="card"><div class="card-label">A급</div><div class="card-value" id="statA">0</div></div>
    <div class="card"><div class="card-label">B급</div><div class="card-value" id="statB">0</div></div>
    <div class="card"><div class="card-label">C급</div><div class="card-value" id="statC">0</div></div>
    <div class="card"><div class="card-label">평균 점수</div><div class="card-value" id="statAvg">0</div></div>
  </div>

  <div class="filters">
    <select id="fDepartment"></select>
    <select id="fGrade"></select>
    <select id="fType"></select>
    <select id="fRegion"></select>
    <input id="fSearch" type="text" placeholder="사업명, 내용 검색">
  </div>
  <div class="toolbar">
    <div class="range">점수 <input id="fMin" type="number" min="0" max="300"> ~ <input id="fMax" type="number" min="0" max="300"></div>
    <button class="btn btn-primary" id="applyBtn">필터 적용</button>
    <button class="btn" id="resetBtn">초기화</button>
    <div class="spacer"></div>
    <span id="resultCount"></span>
    <button class="btn" id="exportBtn">엑셀 내보내기</button>
  </div>

  <div class="table-wrap">
    <table>
      <thead><tr>
        <th class="cb-cell"><input type="checkbox" id="headerCb"></th>
        <th>#</th><th>부처</th><th>사업명</th><th>예산</th><th>등급</th><th>점수</th><th>유형</th><th>지역</th>
      </tr></thead>
      <tbody id="rows"></tbody>
    </table>
    <div class="empty-state" id="emptyState" style="display:none">조건에 맞는 사업이 없습니다.</div>
  </div>
  <div class="pagination" id="pagination"></div>
</div>

<div class="selection-bar">
  <span class="count" id="selCount">0개 선택</span>
  <span id="selChips"></span>
  <span class="spacer" style="flex:1"></span>
  <div class="progress" id="progress" style="display:none"><div id="progressBar" style="width:0"></div></div>
  <button class="btn" id="clearBtn">선택 해제</button>
  <button class="btn btn-primary" id="reportBtn">검토의견서 생성</button>
</div>

<div class="modal-overlay" id="detailOverlay">
  <div class="modal">
    <h2><span id="detailTitle"></span><button class="modal-close" id="detailClose">&times;</button></h2>
    <div class="detail-grid" id="detailGrid"></div>
  </div>
</div>

<div class="modal-overlay" id="reportOverlay">
  <div class="modal">
    <h2>생성된 검토의견서<button class="modal-close" id="reportClose">&times;</button></h2>
    <div id="reportBody"></div>
  </div>
</div>

<div class="toast" id="toast"></div>

<script>
(function() {
  'use strict';

  function g(id) { return document.getElementById(id); }
  var state = null;
  var apiBase = window.location.origin;

  function apiFetch(path, opts) {
    opts = opts || {};
    opts.headers = { 'Content-Type': 'application/json' };
    var key = window.localStorage.getItem('gbdash.apiKey');
    if (key) opts.headers['Authorization'] = 'Bearer ' + key;
    return fetch(apiBase + path, opts).then(function(resp) {
      return resp.json().then(function(data) {
        if (!resp.ok) throw new Error(data.error || ('HTTP ' + resp.status));
        return data;
      });
    });
  }

  function esc(s) {
    var d = document.createElement('div');
    d.textContent = s == null ? '' : String(s);
    return d.innerHTML;
  }

  function post(path, body, method) {
    return apiFetch(path, { method: method || 'POST', body: JSON.stringify(body || {}) })
      .then(render).catch(refresh);
  }

  function refresh() {
    return apiFetch('/ui/state').then(render).catch(function() {});
  }

  function fillSelect(el, label, values, current) {
    var html = '<option value="">' + esc(label) + '</option>';
    (values || []).forEach(function(v) {
      html += '<option' + (v === current ? ' selected' : '') + '>' + esc(v) + '</option>';
    });
    el.innerHTML = html;
  }

  function render(s) {
    state = s;
    var st = s.statistics;
    g('statTotal').textContent = st.total_projects;
    g('statA').textContent = st.a_grade_count;
    g('statB').textContent = st.b_grade_count;
    g('statC').textContent = st.c_grade_count;
    g('statAvg').textContent = st.avg_score.toFixed(1);

    var c = s.controls, o = s.options;
    fillSelect(g('fDepartment'), '전체 부처', o.departments, c.department);
    fillSelect(g('fGrade'), '전체 등급', o.grades, c.grade);
    fillSelect(g('fType'), '전체 유형', o.types, c.type);
    fillSelect(g('fRegion'), '전체 지역', o.regions, c.region);
    if (document.activeElement !== g('fSearch')) g('fSearch').value = c.search;
    g('fMin').value = c.min_score;
    g('fMax').value = c.max_score;
    g('resultCount').textContent = '검색 결과 ' + s.result_count + '건';

    var html = '';
    s.rows.forEach(function(r) {
      html += '<tr data-id="' + r.id + '">' +
        '<td class="cb-cell"><input type="checkbox" data-id="' + r.id + '"' + (r.selected ? ' checked' : '') + '></td>' +
        '<td>' + r.display_index + '</td><td>' + esc(r.department) + '</td>' +
        '<td><a href="#" data-detail="' + r.id + '">' + esc(r.name) + '</a></td>' +
        '<td>' + esc(r.budget) + '</td>' +
        '<td><span class="grade ' + r.grade_class + '">' + esc(r.grade) + '</span></td>' +
        '<td class="' + r.score_class + '">' + r.score.toFixed(1) + '</td>' +
        '<td>' + esc(r.type) + '</td><td>' + esc(r.region) + '</td></tr>';
    });
    g('rows').innerHTML = html;
    g('emptyState').style.display = s.empty ? '' : 'none';

    var hcb = g('headerCb');
    hcb.checked = s.selection.header.checked;
    hcb.indeterminate = s.selection.header.indeterminate;

    var ph = '';
    (s.window || []).forEach(function(l) {
      if (l.kind === 'ellipsis') { ph += '<span>...</span>'; return; }
      var text = l.kind === 'prev' ? '&lsaquo;' : l.kind === 'next' ? '&rsaquo;' : l.page;
      var target = l.kind === 'prev' ? s.page.current_page - 1 : l.kind === 'next' ? s.page.current_page + 1 : l.page;
      ph += '<button data-page="' + target + '"' + (l.current ? ' class="current"' : '') + (l.disabled ? ' disabled' : '') + '>' + text + '</button>';
    });
    g('pagination').innerHTML = ph;

    var sel = s.selection;
    g('selCount').textContent = sel.count + '개 선택';
    var chips = '';
    (sel.visible || []).forEach(function(r) {
      chips += '<span class="chip">' + esc(r.name) + '<button data-remove="' + r.index + '">&times;</button></span> ';
    });
    if (sel.more > 0) chips += '<span class="chip">외 ' + sel.more + '건</span>';
    g('selChips').innerHTML = chips;

    g('progress').style.display = s.report.running ? '' : 'none';
    g('progressBar').style.width = s.report.progress + '%';
    g('reportBtn').disabled = s.report.running;

    var t = g('toast');
    if (s.notification) {
      t.className = 'toast show toast-' + s.notification.level;
      t.textContent = s.notification.message;
    } else {
      t.className = 'toast';
    }
  }

  function controls() {
    return {
      department: g('fDepartment').value,
      grade: g('fGrade').value,
      type: g('fType').value,
      region: g('fRegion').value,
      search: g('fSearch').value,
      min_score: parseInt(g('fMin').value, 10) || 0,
      max_score: parseInt(g('fMax').value, 10) || 0
    };
  }

  function showDetail(id) {
    apiFetch('/ui/projects/' + id).then(function(d) {
      g('detailTitle').textContent = d.name;
      var items = [['부처', d.department], ['예산', d.budget_label], ['등급', d.grade], ['점수', d.score],
        ['유형', d.type], ['지역', d.region], ['기간', d.period], ['시행기관', d.agency], ['매칭', d.matching], ['출처', d.source]];
      var html = '';
      items.forEach(function(i) {
        html += '<div class="detail-item"><div class="label">' + i[0] + '</div><div class="value">' + esc(i[1]) + '</div></div>';
      });
      html += '<div class="detail-item" style="grid-column:1/-1"><div class="label">내용</div><div class="value">' + esc(d.content) + '</div></div>';
      g('detailGrid').innerHTML = html;
      g('detailOverlay').classList.add('open');
    }).catch(refresh);
  }

  function showReports(view) {
    var html = '<p>' + view.generated_count + '개 생성</p><ul>';
    (view.files || []).forEach(function(f) {
      html += '<li><a href="/ui/reports/' + encodeURIComponent(f.filename) + '">' + esc(f.project_name || f.filename) + '</a></li>';
    });
    g('reportBody').innerHTML = html + '</ul>';
    g('reportOverlay').classList.add('open');
  }

  g('applyBtn').onclick = function() { post('/ui/filters', controls()); };
  g('resetBtn').onclick = function() { post('/ui/filters/reset'); };
  g('fSearch').oninput = function() { post('/ui/filters/search', { search: g('fSearch').value }); };
  g('headerCb').onchange = function() { post('/ui/selection', { included: g('headerCb').checked }, 'PUT'); };
  g('clearBtn').onclick = function() { post('/ui/selection', null, 'DELETE'); };
  g('exportBtn').onclick = function() { apiFetch('/ui/export', { method: 'POST' }).then(refresh).catch(refresh); };
  g('reportBtn').onclick = function() {
    apiFetch('/ui/reports', { method: 'POST' }).then(function(v) { refresh(); showReports(v); }).catch(refresh);
  };
  g('detailClose').onclick = function() { g('detailOverlay').classList.remove('open'); };
  g('reportClose').onclick = function() { g('reportOverlay').classList.remove('open'); };

  g('rows').onchange = function(e) {
    var id = e.target.getAttribute('data-id');
    if (id !== null) post('/ui/selection/' + id, { included: e.target.checked }, 'PUT');
  };
  g('rows').onclick = function(e) {
    var id = e.target.getAttribute('data-detail');
    if (id !== null) { e.preventDefault(); showDetail(id); }
  };
  g('pagination').onclick = function(e) {
    var p = e.target.getAttribute('data-page');
    if (p !== null && !e.target.disabled) post('/ui/pages/' + p);
  };
  g('selChips').onclick = function(e) {
    var id = e.target.getAttribute('data-remove');
    if (id !== null) post('/ui/selection/' + id, null, 'DELETE');
  };

  function pollHealth() {
    fetch(apiBase + '/health').then(function(r) { return r.json(); }).then(function(h) {
      var b = g('healthBadge');
      b.textContent = h.status;
      b.className = 'badge badge-' + h.status;
    }).catch(function() {});
  }

  refresh();
  pollHealth();
  setInterval(refresh, 1000);
  setInterval(pollHealth, 15000);
})();
</script>
</body>
</html>
`
